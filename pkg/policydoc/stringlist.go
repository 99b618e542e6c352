package policydoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// StringList holds Action, Resource and condition values. The IAM grammar
// allows a single string or a list; condition values may also be written as
// bare numbers or booleans. Decoding accepts all of these, encoding always
// emits a list.
type StringList []string

// Contains reports whether v is one of the values.
func (l StringList) Contains(v string) bool {
	return slices.Contains(l, v)
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(StringList, 0, len(raw))
		for _, item := range raw {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		*l = out
		return nil
	}
	s, err := scalarString(data)
	if err != nil {
		return err
	}
	*l = StringList{s}
	return nil
}

func scalarString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return "", err
		}
		if b {
			return "true", nil
		}
		return "false", nil
	case '{', '[', 'n':
		return "", fmt.Errorf("expected string value, got %s", data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}
