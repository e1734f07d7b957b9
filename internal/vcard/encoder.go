package vcard

import (
	"bytes"
	"fmt"

	govcard "github.com/emersion/go-vcard"

	"github.com/mrlokans/vcfgen/internal/contacts"
)

// Version is the vCard version written for every entry. 3.0 is the newest
// version that address books on older phones still import reliably.
const Version = "3.0"

// CardEncoder serializes contacts as vCard 3.0 entries.
type CardEncoder struct{}

func NewCardEncoder() *CardEncoder {
	return &CardEncoder{}
}

// Encode returns one complete BEGIN:VCARD ... END:VCARD block. The entry is
// built in memory so callers can hand it to the sink in a single write.
func (e *CardEncoder) Encode(contact contacts.Contact) ([]byte, error) {
	card := make(govcard.Card)
	card.SetValue(govcard.FieldVersion, Version)
	card.SetValue(govcard.FieldFormattedName, contact.DisplayName())
	card.SetName(&govcard.Name{GivenName: contact.DisplayName()})

	for _, phone := range contact.Phones {
		card.Add(govcard.FieldTelephone, &govcard.Field{
			Value:  phone,
			Params: govcard.Params{govcard.ParamType: {govcard.TypeCell}},
		})
	}

	var buf bytes.Buffer
	if err := govcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, fmt.Errorf("encode vcard for %q: %w", contact.DisplayName(), err)
	}
	return buf.Bytes(), nil
}
