// Package book holds one open contact book: the contact set loaded from the
// database file, its name index and the unsaved-changes flag.
package book

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/n3wscott/contactbook/internal/index"
	"github.com/n3wscott/contactbook/internal/model"
	"github.com/n3wscott/contactbook/internal/search"
	"github.com/n3wscott/contactbook/internal/store"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrDuplicatePhone  = errors.New("contact with this phone number already exists")
	ErrNoChanges       = errors.New("there were no changes")
	ErrUnsavedChanges  = errors.New("book has unsaved changes")
)

// Logger is the subset of zap's SugaredLogger we need.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
}

// Book is safe for use by the shell loop and the file watcher at once:
// mutations take the write lock, queries the read lock.
type Book struct {
	opts   store.Options
	logger Logger

	mu      sync.RWMutex
	path    string
	set     *model.Set
	idx     *index.Index
	dirty   bool
	version uint64
	// disk is the file state this book last read or wrote.
	disk fileStamp
}

// fileStamp identifies one version of the database file on disk.
type fileStamp struct {
	size    int64
	modTime time.Time
}

func stampFile(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{size: info.Size(), modTime: info.ModTime()}
}

func (s fileStamp) valid() bool {
	return !s.modTime.IsZero()
}

func (s fileStamp) same(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// Open loads the database file at path, creating it when missing.
func Open(path string, opts store.Options, logger Logger) (*Book, error) {
	if opts.Logger == nil {
		opts.Logger = logger
	}
	set, resolved, err := store.Load(path, opts)
	if err != nil {
		return nil, err
	}
	logger.Infow("contact book loaded", "path", resolved, "contacts", set.Len())
	return &Book{opts: opts, logger: logger, path: resolved, set: set, disk: stampFile(resolved)}, nil
}

// Path is the resolved database file.
func (b *Book) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Len is the number of contacts.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.set.Len()
}

// Dirty reports unsaved changes.
func (b *Book) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dirty
}

// Version increases on every mutation and reload.
func (b *Book) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Contacts returns all contacts sorted by name.
func (b *Book) Contacts() []model.Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.set.Sorted()
}

// FindByPhone looks up an exact phone number.
func (b *Book) FindByPhone(phone string) (model.Contact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := search.FindByPhone(b.set, phone)
	if !ok {
		return model.Contact{}, ErrContactNotFound
	}
	return c, nil
}

// FindByName searches names through the prefix index, building it on first
// use after any change. It takes the write lock since it may fill the index.
func (b *Book) FindByName(query string) ([]model.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idx == nil {
		b.idx = index.Build(b.set)
	}
	hits := search.FindByNameIndexed(b.idx, b.set, query)
	if len(hits) == 0 {
		return nil, ErrContactNotFound
	}
	return hits, nil
}

// Add inserts c. An existing phone number is rejected, never overwritten.
func (b *Book) Add(c model.Contact) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.set.Get(c.Phone); exists {
		return ErrDuplicatePhone
	}
	b.set.Put(c)
	b.touchLocked()
	return nil
}

// Update describes an edit. Empty fields keep the current value.
type Update struct {
	Name  string
	Phone string
}

// Edit replaces the contact stored under phone with a freshly validated
// one. A new phone number moves the contact and drops the old key.
func (b *Book) Edit(phone string, upd Update) (model.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old, ok := b.set.Get(phone)
	if !ok {
		return model.Contact{}, ErrContactNotFound
	}
	name := upd.Name
	if name == "" {
		name = old.Name
	}
	newPhone := upd.Phone
	if newPhone == "" {
		newPhone = old.Phone
	}
	if newPhone != phone {
		if _, taken := b.set.Get(newPhone); taken {
			return model.Contact{}, ErrDuplicatePhone
		}
	}

	c, err := model.New(newPhone, name, model.WithTitle(old.Title))
	if err != nil {
		return model.Contact{}, err
	}
	b.set.Replace(phone, c)
	b.touchLocked()
	return c, nil
}

// Remove deletes the contact stored under phone.
func (b *Book) Remove(phone string) (model.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.set.Delete(phone)
	if !ok {
		return model.Contact{}, ErrContactNotFound
	}
	b.touchLocked()
	return c, nil
}

// MergeResult counts what Merge did.
type MergeResult struct {
	Added    int
	Replaced int
	Skipped  int
}

// Merge adds contacts in bulk. Existing phone numbers are skipped unless
// overwrite is set.
func (b *Book) Merge(contacts []model.Contact, overwrite bool) MergeResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res MergeResult
	for _, c := range contacts {
		if _, exists := b.set.Get(c.Phone); exists {
			if !overwrite {
				res.Skipped++
				continue
			}
			res.Replaced++
		} else {
			res.Added++
		}
		b.set.Put(c)
	}
	if res.Added+res.Replaced > 0 {
		b.touchLocked()
	}
	return res
}

// Save writes the book back to its file. A clean book returns ErrNoChanges.
func (b *Book) Save() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty {
		return 0, ErrNoChanges
	}
	n, err := store.Save(b.set, b.path, b.opts)
	if err != nil {
		return n, err
	}
	b.dirty = false
	b.disk = stampFile(b.path)
	return n, nil
}

// Backup dumps the book to path as JSON.
func (b *Book) Backup(path string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return store.Backup(b.set, path, b.opts)
}

// Restore replaces the whole contact set, e.g. from a backup.
func (b *Book) Restore(set *model.Set) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set = set.Clone()
	b.touchLocked()
}

// Reload re-reads the database file when it changed since this book last
// read or wrote it; an unchanged file is a no-op, so the book's own saves
// never replace in-memory state. It refuses when there are unsaved
// changes, since they would be lost.
func (b *Book) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	current := stampFile(b.path)
	if current.valid() && current.same(b.disk) {
		return nil
	}
	if b.dirty {
		return ErrUnsavedChanges
	}
	set, _, err := store.Load(b.path, b.opts)
	if err != nil {
		return err
	}
	b.set = set
	b.disk = current
	b.idx = nil
	b.version++
	b.logger.Infow("contact book reloaded", "path", b.path, "contacts", set.Len())
	return nil
}

// touchLocked marks the book changed and drops the name index so the next
// name search sees the change.
func (b *Book) touchLocked() {
	b.dirty = true
	b.idx = nil
	b.version++
}
