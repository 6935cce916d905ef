package index_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3wscott/contactbook/internal/index"
	"github.com/n3wscott/contactbook/internal/model"
)

func TestLookupPrefixInInsertionOrder(t *testing.T) {
	set := model.NewSet(
		model.Trusted("1", "Anna", time.Time{}),
		model.Trusted("2", "Anne", time.Time{}),
		model.Trusted("3", "Bob", time.Time{}),
	)
	idx := index.Build(set)

	hits, ok := idx.Lookup("AN")
	require.True(t, ok)
	require.Len(t, hits, 2)
	assert.Equal(t, "Anna", hits[0].Name)
	assert.Equal(t, "Anne", hits[1].Name)

	hits, ok = idx.Lookup("an")
	require.True(t, ok)
	assert.Len(t, hits, 2)

	hits, ok = idx.Lookup("anne")
	require.True(t, ok)
	require.Len(t, hits, 1)
	assert.Equal(t, "2", hits[0].Phone)

	_, ok = idx.Lookup("nn")
	assert.False(t, ok, "substrings are not indexed")
	_, ok = idx.Lookup("")
	assert.False(t, ok)
}

func TestEveryPrefixIsIndexed(t *testing.T) {
	set := model.NewSet(
		model.Trusted("+7925", "george", time.Time{}),
		model.Trusted("+7926", "Жанна Иванова", time.Time{}),
		model.Trusted("+7927", "Geo", time.Time{}),
	)
	idx := index.Build(set)

	for _, c := range set.Contacts() {
		runes := []rune(c.Name)
		for n := 1; n <= len(runes); n++ {
			prefix := strings.ToLower(string(runes[:n]))
			hits, ok := idx.Lookup(prefix)
			require.True(t, ok, "prefix %q", prefix)
			assert.Contains(t, hits, c, "prefix %q", prefix)
		}
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	idx := index.Build(model.NewSet(model.Trusted("1", "Al", time.Time{})))
	hits, _ := idx.Lookup("A")
	hits[0] = model.Trusted("x", "x", time.Time{})

	again, _ := idx.Lookup("A")
	assert.Equal(t, "1", again[0].Phone)
}

func TestNilIndex(t *testing.T) {
	var idx *index.Index
	_, ok := idx.Lookup("A")
	assert.False(t, ok)
	assert.Zero(t, idx.Len())
}
