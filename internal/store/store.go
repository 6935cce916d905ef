// Package store reads and writes the contact set: the delimited database
// file that is the source of truth, and the JSON backup dump.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/n3wscott/contactbook/internal/model"
)

var (
	// ErrFileBaseNotCreated means a missing database or backup file could
	// not be created.
	ErrFileBaseNotCreated = errors.New("store: database file could not be created")
	// ErrMalformedRow is returned for a database line that does not hold
	// phone, name and timestamp.
	ErrMalformedRow = errors.New("store: malformed row")
)

// Logger is the subset of zap's SugaredLogger we need.
type Logger interface {
	Warnw(msg string, keysAndValues ...any)
}

// Op names the operation a Progress event belongs to.
type Op string

const (
	OpLoad   Op = "load"
	OpSave   Op = "save"
	OpBackup Op = "backup"
)

// Progress is reported every chunk rows and once more when an operation
// finishes with Done set.
type Progress struct {
	Op   Op
	Rows int
	Done bool
}

// ProgressFunc receives progress events.
type ProgressFunc func(Progress)

const (
	DefaultSeparator = ";"
	DefaultThreshold = 10
	DefaultChunk     = 100
)

// Options tunes persistence. Build it once from configuration and pass it
// to every call.
type Options struct {
	// Separator joins the fields of a database row.
	Separator string
	// Threshold is the row count up to which DefaultChunk applies.
	Threshold int
	// DefaultChunk is the progress interval for small sets.
	DefaultChunk int
	// Chunk forces a progress interval; zero derives it from the row count.
	Chunk int

	Progress ProgressFunc
	Logger   Logger
}

// DefaultOptions returns the stock separator and progress tuning.
func DefaultOptions() Options {
	return Options{
		Separator:    DefaultSeparator,
		Threshold:    DefaultThreshold,
		DefaultChunk: DefaultChunk,
	}
}

// ChunkFor picks the progress interval for total rows.
func ChunkFor(total, threshold, defaultChunk int) int {
	chunk := threshold
	if total <= threshold {
		chunk = defaultChunk
	}
	if chunk <= 0 {
		return 1
	}
	return chunk
}

func (o Options) separator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}
	return o.Separator
}

func (o Options) chunk(total int) int {
	if o.Chunk > 0 {
		return o.Chunk
	}
	return ChunkFor(total, o.Threshold, o.DefaultChunk)
}

// tracker emits progress the same way for every operation: periodic events
// only when the run spans at least two chunks, a final total when any row
// was handled.
type tracker struct {
	op    Op
	total int
	chunk int
	rows  int
	fn    ProgressFunc
}

func (o Options) track(op Op, total int) *tracker {
	return &tracker{op: op, total: total, chunk: o.chunk(total), fn: o.Progress}
}

func (t *tracker) step() {
	t.rows++
	if t.fn != nil && t.total/t.chunk >= 2 && t.rows%t.chunk == 0 {
		t.fn(Progress{Op: t.op, Rows: t.rows})
	}
}

func (t *tracker) done() {
	if t.fn != nil && t.rows > 0 {
		t.fn(Progress{Op: t.op, Rows: t.rows, Done: true})
	}
}

// ensureFile creates an empty file at path when none exists.
func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: stat %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrFileBaseNotCreated, path, err)
	}
	return f.Close()
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Load reads the database file at path. A missing file is created empty and
// yields an empty set. Rows are trusted and not re-validated. The returned
// path is the absolute path that was read.
func Load(path string, opts Options) (*model.Set, string, error) {
	path = absPath(path)
	if err := ensureFile(path); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("store: reading %s: %w", path, err)
	}

	lines := splitLines(data)
	sep := opts.separator()
	set := model.NewSet()
	progress := opts.track(OpLoad, len(lines))

	for _, ln := range lines {
		c, err := parseRow(ln.text, sep)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s:%d: %v", ErrMalformedRow, path, ln.num, err)
		}
		if set.Put(c) && opts.Logger != nil {
			opts.Logger.Warnw("duplicate phone in database, later row wins", "phone", c.Phone, "line", ln.num)
		}
		progress.step()
	}
	progress.done()

	return set, path, nil
}

type line struct {
	num  int
	text string
}

// splitLines returns the non-blank lines of data with 1-based numbers.
func splitLines(data []byte) []line {
	var out []line
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	num := 0
	for sc.Scan() {
		num++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, line{num: num, text: text})
	}
	return out
}

// parseRow splits on the first and last separator so that a name holding
// the separator still reads back whole.
func parseRow(text, sep string) (model.Contact, error) {
	first := strings.Index(text, sep)
	last := strings.LastIndex(text, sep)
	if first < 0 || first == last {
		return model.Contact{}, fmt.Errorf("want phone%[1]sname%[1]stimestamp, got %q", sep, text)
	}
	phone := text[:first]
	name := text[first+len(sep) : last]
	created, err := model.ParseTimestamp(text[last+len(sep):])
	if err != nil {
		return model.Contact{}, fmt.Errorf("timestamp: %w", err)
	}
	return model.Trusted(phone, name, created), nil
}

// Save rewrites the database file at path with one row per contact and
// returns the number of rows written. The file is truncated first; a crash
// mid-write leaves it partial.
func Save(set *model.Set, path string, opts Options) (int, error) {
	if err := ensureFile(path); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("store: opening %s: %w", path, err)
	}
	defer f.Close()

	sep := opts.separator()
	contacts := set.Contacts()
	progress := opts.track(OpSave, len(contacts))
	w := bufio.NewWriter(f)

	for _, c := range contacts {
		if _, err := w.WriteString(c.Row(sep) + "\n"); err != nil {
			return progress.rows, fmt.Errorf("store: writing %s: %w", path, err)
		}
		progress.step()
	}
	if err := w.Flush(); err != nil {
		return progress.rows, fmt.Errorf("store: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return progress.rows, fmt.Errorf("store: closing %s: %w", path, err)
	}
	progress.done()

	return progress.rows, nil
}

// Backup dumps the whole set to path as one JSON object keyed by phone
// number with sorted keys and four-space indentation. It returns the
// absolute path written.
func Backup(set *model.Set, path string, opts Options) (string, error) {
	path = absPath(path)
	if err := ensureFile(path); err != nil {
		return "", err
	}

	contacts := set.Contacts()
	progress := opts.track(OpBackup, len(contacts))
	dump := make(map[string]model.Entry, len(contacts))
	for _, c := range contacts {
		for phone, entry := range c.JSONEntry() {
			dump[phone] = entry
		}
		progress.step()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(dump); err != nil {
		return "", fmt.Errorf("store: encoding backup: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("store: writing %s: %w", path, err)
	}
	progress.done()

	return path, nil
}

// ReadBackup parses a file written by Backup. Entries are validated since a
// backup may have been edited by hand; the result is ordered by phone.
func ReadBackup(path string) (*model.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	var dump map[string]model.Entry
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("store: parsing %s: %w", path, err)
	}

	phones := make([]string, 0, len(dump))
	for phone := range dump {
		phones = append(phones, phone)
	}
	sort.Strings(phones)

	set := model.NewSet()
	for _, key := range phones {
		entry := dump[key]
		if entry.Phone == "" {
			entry.Phone = key
		}
		created, err := model.ParseTimestamp(entry.Created)
		if err != nil {
			return nil, fmt.Errorf("store: %s: entry %s: %w", path, key, err)
		}
		c, err := model.New(entry.Phone, entry.Name, model.CreatedAt(created), model.WithTitle(entry.Title))
		if err != nil {
			return nil, fmt.Errorf("store: %s: entry %s: %w", path, key, err)
		}
		set.Put(c)
	}
	return set, nil
}
