package policydoc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every structural validation failure.
var ErrInvalid = errors.New("invalid policy document")

// Validate checks the structure an IAM policy needs to be accepted:
// the supported version, at least one statement, and for each statement a
// known effect with non-empty actions and resources.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalid)
	}
	if d.Version != Version {
		return fmt.Errorf("%w: Version must be %q, got %q", ErrInvalid, Version, d.Version)
	}
	if len(d.Statement) == 0 {
		return fmt.Errorf("%w: Statement must not be empty", ErrInvalid)
	}
	for i, st := range d.Statement {
		if !st.Effect.Valid() {
			return fmt.Errorf("%w: Statement[%d].Effect must be Allow or Deny, got %q", ErrInvalid, i, st.Effect)
		}
		if blank(st.Action) {
			return fmt.Errorf("%w: Statement[%d].Action is required", ErrInvalid, i)
		}
		if blank(st.Resource) {
			return fmt.Errorf("%w: Statement[%d].Resource is required", ErrInvalid, i)
		}
	}
	return nil
}

func blank(l StringList) bool {
	for _, v := range l {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
