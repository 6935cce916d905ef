// Package index builds the name-prefix cache used by name search.
package index

import (
	"strings"

	"github.com/n3wscott/contactbook/internal/model"
)

// Index maps every uppercased name prefix to the contacts whose name
// starts with it. It is built once and never mutated; rebuild it after the
// underlying set changes.
type Index struct {
	prefixes map[string][]model.Contact
}

// Build indexes every prefix of every contact name in set order.
func Build(set *model.Set) *Index {
	idx := &Index{prefixes: make(map[string][]model.Contact)}
	for _, c := range set.Contacts() {
		runes := []rune(c.Name)
		for n := 1; n <= len(runes); n++ {
			key := strings.ToUpper(string(runes[:n]))
			idx.prefixes[key] = append(idx.prefixes[key], c)
		}
	}
	return idx
}

// Lookup returns the contacts whose name has query as an exact
// (case-insensitive) prefix.
func (i *Index) Lookup(query string) ([]model.Contact, bool) {
	if i == nil {
		return nil, false
	}
	hits, ok := i.prefixes[strings.ToUpper(query)]
	if !ok {
		return nil, false
	}
	return append([]model.Contact(nil), hits...), true
}

// Len reports the number of distinct prefixes.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.prefixes)
}
