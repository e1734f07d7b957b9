package contacts

import "errors"

// ErrInvalidLine marks a line that does not describe a contact. It is a
// recoverable, per-line failure; any other error from the parser is treated
// by the generator as unexpected.
var ErrInvalidLine = errors.New("invalid contact line")

// Contact is a single parsed contact. Phones keep the order in which they
// appeared on the line.
type Contact struct {
	Name   string   `validate:"max=256"`
	Phones []string `validate:"required,min=1,dive,phone"`
}

// DisplayName returns the name, falling back to the first phone number for
// lines that only contained a number.
func (c Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Phones) > 0 {
		return c.Phones[0]
	}
	return ""
}
