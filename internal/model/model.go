package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the on-disk layout of Contact.Created (DD.MM.YYYY HH:MM:SS).
const TimestampLayout = "02.01.2006 15:04:05"

var (
	// ErrInvalidName is the parent of every name validation failure.
	ErrInvalidName = errors.New("contact name failed verification")
	// ErrInvalidPhone is the parent of every phone validation failure.
	ErrInvalidPhone = errors.New("phone number failed verification")

	ErrEmptyName     = fmt.Errorf("%w: contact name is empty", ErrInvalidName)
	ErrNameLineBreak = fmt.Errorf("%w: contact name must be a single line", ErrInvalidName)
	ErrEmptyPhone    = fmt.Errorf("%w: phone number is empty", ErrInvalidPhone)
	ErrNonDigitPhone = fmt.Errorf("%w: phone number must contain only digits after an optional +", ErrInvalidPhone)
)

// Title is an optional form of address carried by a contact.
type Title string

const (
	TitleNone Title = ""
	TitleMr   Title = "Mr"
	TitleMs   Title = "Ms"
)

// ParseTitle accepts "mr", "Ms", "" and friends.
func ParseTitle(raw string) (Title, error) {
	switch strings.ToLower(strings.TrimSpace(strings.TrimSuffix(raw, "."))) {
	case "":
		return TitleNone, nil
	case "mr":
		return TitleMr, nil
	case "ms":
		return TitleMs, nil
	default:
		return TitleNone, fmt.Errorf("unknown title %q", raw)
	}
}

// Contact is a single address book record. It is never mutated after
// construction; edits build a replacement value.
type Contact struct {
	Phone   string
	Name    string
	Title   Title
	Created time.Time
}

// Option adjusts a Contact during New.
type Option func(*Contact)

// CreatedAt pins the creation timestamp instead of using the current time.
func CreatedAt(t time.Time) Option {
	return func(c *Contact) {
		c.Created = t
	}
}

// WithTitle sets the contact title.
func WithTitle(t Title) Option {
	return func(c *Contact) {
		c.Title = t
	}
}

// New validates phone and name and returns a Contact stamped with the
// current time unless CreatedAt is given.
func New(phone, name string, opts ...Option) (Contact, error) {
	if err := ValidateName(name); err != nil {
		return Contact{}, err
	}
	if err := ValidatePhone(phone); err != nil {
		return Contact{}, fmt.Errorf("%w (got %q)", err, phone)
	}
	c := Contact{Phone: phone, Name: name}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	return c, nil
}

// Trusted builds a Contact without validation. It is meant for rows read
// back from the database file, which were validated when first written.
func Trusted(phone, name string, created time.Time) Contact {
	return Contact{Phone: phone, Name: name, Created: created}
}

// ValidateName reports ErrEmptyName for an empty name and ErrNameLineBreak
// for one that would span several database rows.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, "\r\n") {
		return ErrNameLineBreak
	}
	return nil
}

// ValidatePhone reports ErrEmptyPhone or ErrNonDigitPhone.
func ValidatePhone(phone string) error {
	if phone == "" {
		return ErrEmptyPhone
	}
	for _, r := range strings.TrimPrefix(phone, "+") {
		if r < '0' || r > '9' {
			return ErrNonDigitPhone
		}
	}
	return nil
}

// Equal compares contacts by phone number only.
func (c Contact) Equal(other Contact) bool {
	return c.Phone == other.Phone
}

// Timestamp returns Created in TimestampLayout.
func (c Contact) Timestamp() string {
	return FormatTimestamp(c.Created)
}

// Row renders the database line for c, without a trailing newline.
func (c Contact) Row(sep string) string {
	return c.Phone + sep + c.Name + sep + c.Timestamp()
}

// Entry is the JSON shape of a contact inside a backup file.
// Fields are declared in key order so the encoded object has sorted keys.
type Entry struct {
	Name    string `json:"contact_name"`
	Created string `json:"date_time_creation_contact"`
	Phone   string `json:"phone_number"`
	Title   Title  `json:"title,omitempty"`
}

// JSONEntry returns the backup object for c keyed by its phone number.
func (c Contact) JSONEntry() map[string]Entry {
	return map[string]Entry{c.Phone: c.Entry()}
}

// Entry returns the backup value for c.
func (c Contact) Entry() Entry {
	return Entry{Phone: c.Phone, Name: c.Name, Created: c.Timestamp(), Title: c.Title}
}

// String is the interactive listing form: "<name> <phone>".
func (c Contact) String() string {
	if c.Title != TitleNone {
		return string(c.Title) + " " + c.Name + " " + c.Phone
	}
	return c.Name + " " + c.Phone
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses TimestampLayout in the local time zone.
func ParseTimestamp(raw string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, raw, time.Local)
}
