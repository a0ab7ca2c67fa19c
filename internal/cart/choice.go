package cart

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Choice is an optional variant axis value. The zero value is None.
type Choice struct {
	value string
	set   bool
}

// None returns an unset choice.
func None() Choice {
	return Choice{}
}

// Some returns a set choice. Blank values collapse to None.
func Some(value string) Choice {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Choice{}
	}
	return Choice{value: trimmed, set: true}
}

// FromPtr maps an optional pointer onto a Choice.
func FromPtr(value *string) Choice {
	if value == nil {
		return None()
	}
	return Some(*value)
}

// Value returns the selected value and whether one is set.
func (c Choice) Value() (string, bool) {
	return c.value, c.set
}

// IsSet reports whether a value is selected.
func (c Choice) IsSet() bool {
	return c.set
}

// Ptr returns the value as a pointer, nil when unset.
func (c Choice) Ptr() *string {
	if !c.set {
		return nil
	}
	v := c.value
	return &v
}

// String returns the selected value or an empty string.
func (c Choice) String() string {
	return c.value
}

// MarshalJSON encodes None as null and Some as a string.
func (c Choice) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	return json.Marshal(c.value)
}

// UnmarshalJSON accepts null or a string.
func (c *Choice) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = None()
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Some(raw)
	return nil
}
