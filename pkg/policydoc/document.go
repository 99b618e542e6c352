// Package policydoc defines the access-policy document exchanged between the
// generator, the record store and clients.
//
// The JSON field names follow the AWS IAM policy grammar (Version, Statement,
// Effect, Action, Resource, Condition), so a document can be pasted into IAM
// unchanged.
package policydoc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the only policy language version this package produces or accepts.
const Version = "2012-10-17"

// Effect is the outcome a statement grants.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Valid reports whether e is Allow or Deny.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Document is a generated access policy. Statement order is preserved for
// display but carries no meaning.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement grants or denies a set of actions over a set of resources.
type Statement struct {
	Sid       string     `json:"Sid,omitempty"`
	Effect    Effect     `json:"Effect"`
	Action    StringList `json:"Action"`
	Resource  StringList `json:"Resource"`
	Condition Condition  `json:"Condition,omitempty"`
}

// Condition maps an operator (StringEquals, Bool, ...) to attribute key/value sets.
type Condition map[string]map[string]StringList

// New returns an empty document at the supported version.
func New(statements ...Statement) *Document {
	return &Document{Version: Version, Statement: statements}
}

// UnmarshalJSON accepts Statement as either a list or a single object, as the
// IAM grammar allows both.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version   string          `json:"Version"`
		Statement json.RawMessage `json:"Statement"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Version = raw.Version
	d.Statement = nil

	body := bytes.TrimSpace(raw.Statement)
	switch {
	case len(body) == 0 || bytes.Equal(body, []byte("null")):
		return nil
	case body[0] == '[':
		return json.Unmarshal(body, &d.Statement)
	case body[0] == '{':
		var st Statement
		if err := json.Unmarshal(body, &st); err != nil {
			return err
		}
		d.Statement = []Statement{st}
		return nil
	default:
		return fmt.Errorf("Statement must be an object or a list of objects")
	}
}

// Encode serializes the document compactly, the form persisted as policy_json.
func (d *Document) Encode() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode policy document: %w", err)
	}
	return string(b), nil
}

// Indent serializes the document for display.
func (d *Document) Indent() (string, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode policy document: %w", err)
	}
	return string(b), nil
}

// Parse decodes text into a Document and validates it.
func Parse(text string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
