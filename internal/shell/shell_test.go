package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3wscott/contactbook/internal/book"
	"github.com/n3wscott/contactbook/internal/store"
	"github.com/n3wscott/contactbook/internal/testutil"
)

const seed = "+1234;Alice;01.02.2023 10:00:00\n+2000;Anna;01.02.2023 10:00:00\n+3000;Bob;01.02.2023 10:00:00\n"

type fixture struct {
	book *book.Book
	out  *bytes.Buffer
	dir  string
}

func newFixture(t *testing.T, rows string) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "contact-book.dbase")
	if rows != "" {
		require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	}
	b, err := book.Open(path, store.DefaultOptions(), testutil.NewTestLogger())
	require.NoError(t, err)
	return &fixture{book: b, out: &bytes.Buffer{}, dir: dir}
}

func (f *fixture) run(t *testing.T, input string, mutate ...func(*Options)) {
	t.Helper()
	opts := Options{
		In:           strings.NewReader(input),
		Out:          f.out,
		Welcome:      "Welcome to contact book",
		Threshold:    store.DefaultThreshold,
		DefaultChunk: store.DefaultChunk,
		BackupPath:   filepath.Join(f.dir, "contact-book.backup"),
	}
	for _, m := range mutate {
		m(&opts)
	}
	require.NoError(t, New(f.book, opts).Run())
}

func (f *fixture) fileContents(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.book.Path())
	require.NoError(t, err)
	return string(data)
}

func TestAddListAndSaveOnExit(t *testing.T) {
	f := newFixture(t, "")
	f.run(t, "1\nAnna\n+123\n\nN\n3\n8\n\n")

	out := f.out.String()
	assert.Contains(t, out, "Welcome to contact book")
	assert.Contains(t, out, "Contact added: Anna +123")
	assert.Contains(t, out, "Anna +123\n")
	assert.Contains(t, out, "Save to disk?")
	assert.False(t, f.book.Dirty())
	assert.Contains(t, f.fileContents(t), "+123;Anna;")
}

func TestAddWithTitle(t *testing.T) {
	f := newFixture(t, "")
	f.run(t, "1\nAnna\n+123\nms\nN\n8\nN\n")

	assert.Contains(t, f.out.String(), "Contact added: Ms Anna +123")
	c, err := f.book.FindByPhone("+123")
	require.NoError(t, err)
	assert.Equal(t, "Ms", string(c.Title))
}

func TestAddRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "1\nBob\n12a\nY\n\nN\n1\nImpostor\n+1234\n\nN\n8\n")

	out := f.out.String()
	assert.Contains(t, out, "your phone number is not valid 12a")
	assert.Contains(t, out, "contact name is empty")
	assert.Contains(t, out, "contact exists")
	assert.Equal(t, 3, f.book.Len())
	assert.False(t, f.book.Dirty())
}

func TestShowAllEmptyBook(t *testing.T) {
	f := newFixture(t, "")
	f.run(t, "3\n8\n")
	assert.Contains(t, f.out.String(), "Contact book is empty!")
}

func TestShowAllSortedByName(t *testing.T) {
	f := newFixture(t, "+3000;Bob;01.02.2023 10:00:00\n+1234;Alice;01.02.2023 10:00:00\n")
	f.run(t, "3\n8\n")

	out := f.out.String()
	alice := strings.Index(out, "Alice +1234")
	bob := strings.Index(out, "Bob +3000")
	require.NotEqual(t, -1, alice)
	require.NotEqual(t, -1, bob)
	assert.Less(t, alice, bob)
}

func TestShowAllPagesInteractively(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "3\n\n\n8\n", func(o *Options) {
		o.Interactive = true
		o.DefaultChunk = 2
	})

	out := f.out.String()
	assert.Equal(t, 1, strings.Count(out, "Output is finished. Press Enter to continue..."))
	first := strings.Index(out, "Press Enter to continue...")
	bob := strings.Index(out, "Bob +3000")
	assert.Less(t, first, bob)
}

func TestUnknownActionExitsOnN(t *testing.T) {
	f := newFixture(t, "")
	f.run(t, "9\nN\n")
	assert.Contains(t, f.out.String(), "unknown action")
}

func TestFindByNameAndPhone(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "2\n2\nan\nY\n1\n+3000\nY\n1\n+9999\nN\n8\n")

	out := f.out.String()
	assert.Contains(t, out, "Anna +2000")
	assert.Contains(t, out, "Bob +3000")
	assert.Contains(t, out, "contact is not found")
}

func TestFindByNameMissAsksToRepeat(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "2\n2\nzed\nN\n3\n8\n")

	out := f.out.String()
	assert.Contains(t, out, "Sorry, contact is not found. Repeat?")
	assert.Contains(t, out, "Bob +3000")
}

func TestFindUnknownMode(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "2\n3\nN\n8\n")
	assert.Contains(t, f.out.String(), "unknown action")
}

func TestRemoveAndExitWithoutSaving(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "4\n+1234\nY\n+1234\nN\n8\nN\n")

	out := f.out.String()
	assert.Contains(t, out, "This contact Alice +1234 will be deleted!")
	assert.Contains(t, out, "contact not found")
	assert.Equal(t, 2, f.book.Len())
	assert.True(t, f.book.Dirty())
	assert.Contains(t, f.fileContents(t), "+1234;Alice;")
}

func TestEditThenSave(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "5\n+1234\nAlicia\n\nN\n7\n7\n8\n")

	out := f.out.String()
	assert.Contains(t, out, "Contact updated: Alicia +1234")
	assert.Contains(t, out, "There were no changes!")
	assert.Contains(t, f.fileContents(t), "+1234;Alicia;")
	assert.False(t, f.book.Dirty())
}

func TestEditRejectsTakenPhone(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "5\n+1234\n\n+3000\nN\n8\n")

	assert.Contains(t, f.out.String(), book.ErrDuplicatePhone.Error())
	c, err := f.book.FindByPhone("+1234")
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Name)
}

func TestBackup(t *testing.T) {
	f := newFixture(t, seed)
	f.run(t, "6\n8\n")

	path := filepath.Join(f.dir, "contact-book.backup")
	assert.Contains(t, f.out.String(), "Backup done... created file: "+path)
	set, err := store.ReadBackup(path)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
}

func TestEndOfInputDiscardsChanges(t *testing.T) {
	f := newFixture(t, "")
	f.run(t, "1\nBob\n+5\n\n")

	assert.Contains(t, f.out.String(), "unsaved changes were discarded")
	assert.Equal(t, "", f.fileContents(t))
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := ProgressPrinter(&buf)
	p(store.Progress{Op: store.OpSave, Rows: 10})
	p(store.Progress{Op: store.OpSave, Rows: 25, Done: true})
	p(store.Progress{Op: store.OpLoad, Rows: 3, Done: true})

	assert.Equal(t, "upload 10 rows...\ntotal upload 25 rows\ntotal download 3 rows\n", buf.String())
}
