// Package search answers phone and name queries against a contact set.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/n3wscott/contactbook/internal/index"
	"github.com/n3wscott/contactbook/internal/model"
)

// lookalikes folds Latin letters onto the Cyrillic letters they are
// usually mistyped as, so a query typed on either keyboard layout matches.
var lookalikes = strings.NewReplacer(
	"ё", "е",
	"t", "т",
	"e", "е",
	"k", "к",
	"a", "а",
	"m", "м",
	"b", "в",
	"c", "с",
	"h", "н",
	"p", "р",
	"o", "о",
)

// Fold case-folds s and maps Latin look-alikes to Cyrillic. It is a
// matching key only, never something to display.
func Fold(s string) string {
	return lookalikes.Replace(cases.Fold().String(s))
}

// Equal reports whether a and b are the same under Fold.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// FindByPhone is an exact-key lookup.
func FindByPhone(set *model.Set, phone string) (model.Contact, bool) {
	return set.Get(phone)
}

// FindByNameSubstring scans every contact and returns those whose name
// contains query under Fold, in set order.
func FindByNameSubstring(set *model.Set, query string) []model.Contact {
	needle := Fold(query)
	var out []model.Contact
	for _, c := range set.Contacts() {
		if strings.Contains(Fold(c.Name), needle) {
			out = append(out, c)
		}
	}
	return out
}

// FindByNameIndexed tries the prefix index first and falls back to the
// substring scan on a miss. idx may be nil.
func FindByNameIndexed(idx *index.Index, set *model.Set, query string) []model.Contact {
	if hits, ok := idx.Lookup(query); ok {
		return hits
	}
	return FindByNameSubstring(set, query)
}
