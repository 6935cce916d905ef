package load_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/n3wscott/contactbook/internal/load"
	"github.com/n3wscott/contactbook/internal/model"
	"github.com/n3wscott/contactbook/internal/testutil"
)

func TestLoaderParsesContacts(t *testing.T) {
	root := t.TempDir()
	writeContactFile(t, root, "team.yaml", `contacts:
  - phone: +1 (555) 123-4567
    name: " Alpha Tester "
    title: mr
    created: "05.03.2024 07:08:09"
  - phone: 6000
    name: Bravo
`)
	loader := load.New(testutil.NewTestLogger())
	res, err := loader.Import(filepath.Join(root, "team.yaml"))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(res.Contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(res.Contacts))
	}
	alpha := res.Contacts[0]
	if alpha.Phone != "+15551234567" || alpha.Name != "Alpha Tester" || alpha.Title != model.TitleMr {
		t.Fatalf("unexpected alpha contact: %+v", alpha)
	}
	want := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.Local)
	if !alpha.Created.Equal(want) {
		t.Fatalf("expected created %v, got %v", want, alpha.Created)
	}
	bravo := res.Contacts[1]
	if bravo.Phone != "6000" {
		t.Fatalf("expected phone 6000, got %s", bravo.Phone)
	}
	if bravo.Created.IsZero() {
		t.Fatalf("expected created to default to now")
	}
}

func TestLoaderDedupLastWins(t *testing.T) {
	root := t.TempDir()
	writeContactFile(t, root, "a.yaml", `- phone: "200"
  name: Jane
`)
	writeContactFile(t, root, "nested/z.yml", `- phone: "200"
  name: Jane Roe
`)
	writeContactFile(t, root, "notes.txt", "ignored")

	logger := testutil.NewTestLogger()
	loader := load.New(logger)
	res, err := loader.Import(root)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("expected 2 yaml files, got %v", res.Files)
	}
	if len(res.Contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(res.Contacts))
	}
	if got := res.Contacts[0].Name; got != "Jane Roe" {
		t.Fatalf("expected later file to win, got %q", got)
	}
	if logger.Count("duplicate phone detected, overriding") != 1 {
		t.Fatalf("expected duplicate warning, got %+v", logger.Entries())
	}
}

func TestLoaderSkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeContactFile(t, root, "users.yaml", `contacts:
  - phone: "abc!"
    name: Bad
  - phone: "123"
    name: ""
  - phone: "124"
    name: Dr Who
    title: dr
  - phone: "125"
    name: Late
    created: someday
  - phone: "126"
    name: Good
`)
	logger := testutil.NewTestLogger()
	loader := load.New(logger)
	res, err := loader.Import(filepath.Join(root, "users.yaml"))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(res.Contacts) != 1 || res.Contacts[0].Name != "Good" {
		t.Fatalf("expected only the valid contact, got %+v", res.Contacts)
	}
	if res.Skipped != 4 {
		t.Fatalf("expected 4 skipped, got %d", res.Skipped)
	}
	if logger.Count("skipping contact") != 4 {
		t.Fatalf("expected 4 skip warnings, got %d", logger.Count("skipping contact"))
	}
}

func TestLoaderEmptyAndBroken(t *testing.T) {
	root := t.TempDir()
	writeContactFile(t, root, "empty.yaml", "")
	loader := load.New(testutil.NewTestLogger())

	res, err := loader.Import(filepath.Join(root, "empty.yaml"))
	if err != nil {
		t.Fatalf("empty file should import cleanly: %v", err)
	}
	if len(res.Contacts) != 0 {
		t.Fatalf("expected no contacts, got %d", len(res.Contacts))
	}

	writeContactFile(t, root, "broken.yaml", "- phone: [\n")
	if _, err := loader.Import(filepath.Join(root, "broken.yaml")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := loader.Import(filepath.Join(root, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func writeContactFile(t *testing.T, root, rel, contents string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
