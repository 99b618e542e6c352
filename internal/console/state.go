// Package console holds the client-side state of the policy generator and
// drives it through the policy API. It renders nothing.
package console

import (
	"github.com/ThomasGates3/ai-powered-iam/pkg/client"
	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

// State is a snapshot of everything a front end displays.
type State struct {
	Input string

	Generating  bool
	Current     *client.Policy
	Document    *policydoc.Document
	GenerateErr string

	Policies []client.Policy
	Listing  bool
	ListErr  string

	Deleting  map[string]bool
	DeleteErr string
}

// Action is a state transition request. See Reduce.
type Action interface {
	isAction()
}

type (
	InputChanged     struct{ Text string }
	GenerateRejected struct{ Reason string }
	GenerateStarted  struct{}
	GenerateFailed   struct{ Message string }
	ListStarted      struct{}
	ListSucceeded    struct{ Policies []client.Policy }
	ListFailed       struct{ Message string }
	DeleteStarted    struct{ ID string }
	DeleteSucceeded  struct{ ID string }
)

type GenerateSucceeded struct {
	Policy   client.Policy
	Document *policydoc.Document
}

type DeleteFailed struct {
	ID      string
	Message string
}

func (InputChanged) isAction() {}
func (GenerateRejected) isAction() {}
func (GenerateStarted) isAction() {}
func (GenerateSucceeded) isAction() {}
func (GenerateFailed) isAction() {}
func (ListStarted) isAction() {}
func (ListSucceeded) isAction() {}
func (ListFailed) isAction() {}
func (DeleteStarted) isAction() {}
func (DeleteSucceeded) isAction() {}
func (DeleteFailed) isAction() {}

// Reduce returns the state that follows s after a. It never mutates s.
// Starting an action that is already in flight leaves the state unchanged.
func Reduce(s State, a Action) State {
	next := s
	switch a := a.(type) {
	case InputChanged:
		next.Input = a.Text
	case GenerateRejected:
		next.GenerateErr = a.Reason
	case GenerateStarted:
		if s.Generating {
			return s
		}
		next.Generating = true
		next.GenerateErr = ""
	case GenerateSucceeded:
		p := a.Policy
		next.Generating = false
		next.Current = &p
		next.Document = a.Document
		next.GenerateErr = ""
		next.Policies = prepend(s.Policies, p)
	case GenerateFailed:
		next.Generating = false
		next.Current = nil
		next.Document = nil
		next.GenerateErr = a.Message
	case ListStarted:
		if s.Listing {
			return s
		}
		next.Listing = true
		next.ListErr = ""
	case ListSucceeded:
		next.Listing = false
		next.Policies = append([]client.Policy{}, a.Policies...)
	case ListFailed:
		next.Listing = false
		next.ListErr = a.Message
	case DeleteStarted:
		if s.Deleting[a.ID] {
			return s
		}
		next.Deleting = withFlag(s.Deleting, a.ID, true)
		next.DeleteErr = ""
	case DeleteSucceeded:
		next.Deleting = withFlag(s.Deleting, a.ID, false)
		next.Policies = without(s.Policies, a.ID)
		if s.Current != nil && s.Current.ID == a.ID {
			next.Current = nil
			next.Document = nil
		}
	case DeleteFailed:
		next.Deleting = withFlag(s.Deleting, a.ID, false)
		next.DeleteErr = a.Message
	}
	return next
}

func prepend(list []client.Policy, p client.Policy) []client.Policy {
	out := make([]client.Policy, 0, len(list)+1)
	out = append(out, p)
	for _, existing := range list {
		if existing.ID != p.ID {
			out = append(out, existing)
		}
	}
	return out
}

func without(list []client.Policy, id string) []client.Policy {
	out := make([]client.Policy, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func withFlag(flags map[string]bool, id string, on bool) map[string]bool {
	out := make(map[string]bool, len(flags)+1)
	for k, v := range flags {
		out[k] = v
	}
	if on {
		out[id] = true
	} else {
		delete(out, id)
	}
	return out
}
