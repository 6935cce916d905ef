package load

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/n3wscott/contactbook/internal/model"
)

// Logger is the subset of zap's SugaredLogger we need.
type Logger interface {
	Warnw(msg string, keysAndValues ...any)
}

// Loader imports contacts from YAML files.
type Loader struct {
	logger Logger
}

// New returns a Loader.
func New(logger Logger) *Loader {
	return &Loader{logger: logger}
}

// Result is the normalized contact list plus metadata.
type Result struct {
	Contacts []model.Contact
	Files    []string
	Skipped  int
}

// Import reads a YAML file, or every .yaml/.yml file below a directory, and
// returns validated contacts. Invalid entries are skipped with a warning;
// on duplicate phone numbers the later file wins.
func (l *Loader) Import(path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = collectYAML(path)
		if err != nil {
			return Result{}, err
		}
	}

	dedup := model.NewSet()
	res := Result{Files: files}

	for _, file := range files {
		contacts, skipped, err := l.parseFile(file)
		if err != nil {
			return Result{}, err
		}
		res.Skipped += skipped
		for _, c := range contacts {
			if existing, ok := dedup.Get(c.Phone); ok {
				l.logger.Warnw("duplicate phone detected, overriding", "phone", c.Phone, "prev", existing.Name, "next", c.Name, "path", file)
			}
			dedup.Put(c)
		}
	}

	res.Contacts = dedup.Contacts()
	return res, nil
}

func collectYAML(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (l *Loader) parseFile(path string) ([]model.Contact, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read contacts %s: %w", path, err)
	}
	rawContacts, err := parseContacts(data)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]model.Contact, 0, len(rawContacts))
	skipped := 0
	for i, rc := range rawContacts {
		contact, err := rc.Normalize()
		if err != nil {
			l.logger.Warnw("skipping contact", "path", path, "entry", i+1, "err", err)
			skipped++
			continue
		}
		out = append(out, contact)
	}
	return out, skipped, nil
}

func parseContacts(data []byte) ([]rawContact, error) {
	var withKey struct {
		Contacts []rawContact `yaml:"contacts"`
	}
	if err := yaml.Unmarshal(data, &withKey); err == nil && len(withKey.Contacts) > 0 {
		return withKey.Contacts, nil
	}

	var list []rawContact
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list, nil
	} else if err != nil {
		return nil, err
	}

	// empty file is fine
	return nil, nil
}

type rawContact struct {
	Phone   string `yaml:"phone"`
	Name    string `yaml:"name"`
	Title   string `yaml:"title"`
	Created string `yaml:"created"`
}

func (rc rawContact) Normalize() (model.Contact, error) {
	phone := normalizePhone(rc.Phone)
	name := strings.TrimSpace(rc.Name)

	title, err := model.ParseTitle(rc.Title)
	if err != nil {
		return model.Contact{}, fmt.Errorf("contact %s: %w", phone, err)
	}

	opts := []model.Option{model.WithTitle(title)}
	if created := strings.TrimSpace(rc.Created); created != "" {
		ts, err := parseCreated(created)
		if err != nil {
			return model.Contact{}, fmt.Errorf("contact %s created: %w", phone, err)
		}
		opts = append(opts, model.CreatedAt(ts))
	}

	return model.New(phone, name, opts...)
}

// parseCreated accepts the database layout or RFC 3339.
func parseCreated(raw string) (time.Time, error) {
	if ts, err := model.ParseTimestamp(raw); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// normalizePhone drops the punctuation people write inside numbers. Anything
// else is left for validation to reject.
func normalizePhone(input string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		switch r {
		case ' ', '\t', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
