package types

import (
	"database/sql/driver"
	"slices"
)

// StringList persists an ordered list of strings as a JSON array. A nil list
// is stored as [] so the column never holds JSON null.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON("string list", []string(l))
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := scanJSON("string list", value, &out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

func (l StringList) Contains(v string) bool {
	return slices.Contains(l, v)
}
