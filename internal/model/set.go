package model

import "sort"

// Set is a contact collection keyed by phone number. Iteration follows the
// order in which phone numbers were first inserted.
type Set struct {
	byPhone map[string]Contact
	order   []string
}

// NewSet returns a Set holding contacts; later duplicates overwrite earlier ones.
func NewSet(contacts ...Contact) *Set {
	s := &Set{byPhone: make(map[string]Contact, len(contacts))}
	for _, c := range contacts {
		s.Put(c)
	}
	return s
}

// Put stores c under its phone number and reports whether it replaced an
// existing contact. A replaced contact keeps its position.
func (s *Set) Put(c Contact) bool {
	if s.byPhone == nil {
		s.byPhone = make(map[string]Contact)
	}
	_, exists := s.byPhone[c.Phone]
	if !exists {
		s.order = append(s.order, c.Phone)
	}
	s.byPhone[c.Phone] = c
	return exists
}

// Get returns the contact stored under phone.
func (s *Set) Get(phone string) (Contact, bool) {
	c, ok := s.byPhone[phone]
	return c, ok
}

// Delete removes phone from the set.
func (s *Set) Delete(phone string) (Contact, bool) {
	c, ok := s.byPhone[phone]
	if !ok {
		return Contact{}, false
	}
	delete(s.byPhone, phone)
	s.order = removeKey(s.order, phone)
	return c, true
}

// Replace swaps the contact stored under oldPhone for c, keeping its
// position. When c carries a different phone the old key is dropped and any
// contact already stored under the new phone is overwritten.
func (s *Set) Replace(oldPhone string, c Contact) bool {
	if _, ok := s.byPhone[oldPhone]; !ok {
		return false
	}
	if oldPhone == c.Phone {
		s.byPhone[oldPhone] = c
		return true
	}
	if _, taken := s.byPhone[c.Phone]; taken {
		s.order = removeKey(s.order, c.Phone)
	}
	delete(s.byPhone, oldPhone)
	s.byPhone[c.Phone] = c
	for i, key := range s.order {
		if key == oldPhone {
			s.order[i] = c.Phone
			break
		}
	}
	return true
}

// Len returns the number of contacts.
func (s *Set) Len() int {
	return len(s.order)
}

// Contacts returns the contacts in insertion order.
func (s *Set) Contacts() []Contact {
	out := make([]Contact, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byPhone[key])
	}
	return out
}

// Sorted returns the contacts ordered by name, then phone.
func (s *Set) Sorted() []Contact {
	out := s.Contacts()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Phone < out[j].Phone
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	return NewSet(s.Contacts()...)
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
