package types

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// DefaultCountry is stamped on addresses that omit one.
const DefaultCountry = "IN"

// Address is the shipping destination recorded on an order, stored as JSON.
type Address struct {
	Name       string  `json:"name" validate:"required,max=100"`
	Phone      string  `json:"phone" validate:"required,max=20"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"required,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=12"`
	Country    string  `json:"country"`
}

// Validate reports every field a courier needs that is blank.
func (a Address) Validate() error {
	var errs error
	for _, f := range []struct{ name, value string }{
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = multierr.Append(errs, fmt.Errorf("address: missing %s", f.name))
		}
	}
	return errs
}

func (a Address) Value() (driver.Value, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Country) == "" {
		a.Country = DefaultCountry
	}
	return valueJSON("address", a)
}

func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	return scanJSON("address", value, a)
}
