package xmlgen

import (
	"encoding/xml"
	"strings"

	"github.com/n3wscott/contactbook/internal/model"
)

// Build generates Grandstream-compatible XML from contacts.
func Build(contacts []model.Contact) ([]byte, error) {
	book := xmlPhonebook{Contacts: make([]xmlContact, 0, len(contacts))}
	for _, c := range contacts {
		first, last := splitName(c.Name)
		book.Contacts = append(book.Contacts, xmlContact{
			LastName:  last,
			FirstName: first,
			Phones: []xmlPhone{{
				Number:       strings.TrimSpace(c.Phone),
				AccountIndex: 1,
			}},
		})
	}

	payload, err := xml.MarshalIndent(book, "", "  ")
	if err != nil {
		return nil, err
	}
	final := append([]byte(xml.Header), payload...)
	if len(final) == 0 || final[len(final)-1] != '\n' {
		final = append(final, '\n')
	}
	return final, nil
}

// splitName puts the first word in FirstName and the rest in LastName.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

type xmlPhonebook struct {
	XMLName  xml.Name     `xml:"AddressBook"`
	Contacts []xmlContact `xml:"Contact"`
}

type xmlContact struct {
	LastName  string     `xml:"LastName,omitempty"`
	FirstName string     `xml:"FirstName,omitempty"`
	Phones    []xmlPhone `xml:"Phone"`
}

type xmlPhone struct {
	Number       string `xml:"phonenumber"`
	AccountIndex int    `xml:"accountindex"`
}
