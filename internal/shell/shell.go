// Package shell is the interactive text menu over an open contact book.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/n3wscott/contactbook/internal/book"
	"github.com/n3wscott/contactbook/internal/logging"
	"github.com/n3wscott/contactbook/internal/model"
	"github.com/n3wscott/contactbook/internal/store"
)

const menuText = `Select an action (enter number) and press Enter:
1. Add contact
2. Find contact
3. Show all contacts
4. Remove contact
5. Edit contact
6. Backup contact book
7. Save contact book to disk
8. Exit`

const (
	actionAdd = iota + 1
	actionFind
	actionList
	actionRemove
	actionEdit
	actionBackup
	actionSave
	actionExit
)

// Options configures a Shell.
type Options struct {
	In  io.Reader
	Out io.Writer

	Welcome string
	// Interactive enables the "press Enter" pauses between pages.
	Interactive bool
	// Threshold and DefaultChunk size listing pages, see store.ChunkFor.
	Threshold    int
	DefaultChunk int
	BackupPath   string

	Tracer *logging.Tracer
}

// Shell runs the menu loop.
type Shell struct {
	book   *book.Book
	opts   Options
	in     *bufio.Scanner
	out    io.Writer
	tracer *logging.Tracer
	styles styles
}

type styles struct {
	title  lipgloss.Style
	banner lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
}

// New returns a Shell over b.
func New(b *book.Book, opts Options) *Shell {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = logging.NewTracer(nil)
	}
	r := lipgloss.NewRenderer(opts.Out)
	return &Shell{
		book:   b,
		opts:   opts,
		in:     bufio.NewScanner(opts.In),
		out:    opts.Out,
		tracer: tracer,
		styles: styles{
			title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			banner: r.NewStyle().Bold(true),
			ok:     r.NewStyle().Foreground(lipgloss.Color("10")),
			err:    r.NewStyle().Foreground(lipgloss.Color("9")),
		},
	}
}

// ProgressPrinter reports load/save/backup progress as plain lines on w.
func ProgressPrinter(w io.Writer) store.ProgressFunc {
	verbs := map[store.Op]string{
		store.OpLoad:   "download",
		store.OpSave:   "upload",
		store.OpBackup: "prepared",
	}
	return func(p store.Progress) {
		verb := verbs[p.Op]
		if p.Done {
			fmt.Fprintf(w, "total %s %d rows\n", verb, p.Rows)
			return
		}
		fmt.Fprintf(w, "%s %d rows...\n", verb, p.Rows)
	}
}

// Run loops until the user exits or input ends.
func (s *Shell) Run() error {
	s.println(s.styles.title.Render(s.opts.Welcome))

	for {
		s.println(menuText)
		raw, err := s.ask("Select action and press Enter>> ")
		if err != nil {
			return s.finish(err)
		}

		action, convErr := strconv.Atoi(strings.TrimSpace(raw))
		if convErr != nil || action < actionAdd || action > actionExit {
			again, err := s.again("Sorry, you selected an unknown action. Repeat? (N - exit)>> ")
			if err != nil {
				return s.finish(err)
			}
			if !again {
				return nil
			}
			continue
		}

		if action == actionExit {
			return s.exit()
		}
		if err := s.dispatch(action); err != nil {
			return s.finish(err)
		}
	}
}

func (s *Shell) dispatch(action int) error {
	switch action {
	case actionAdd:
		return s.repeat(s.add)
	case actionFind:
		return s.repeat(s.find)
	case actionList:
		return s.list(s.book.Contacts())
	case actionRemove:
		return s.repeat(s.remove)
	case actionEdit:
		return s.repeat(s.edit)
	case actionBackup:
		return s.backup()
	case actionSave:
		return s.save()
	}
	return nil
}

// repeat runs step until it declines another round. step returns the
// follow-up question to ask, or "" to go straight back to the menu.
func (s *Shell) repeat(step func() (string, error)) error {
	for {
		question, err := step()
		if err != nil {
			return err
		}
		if question == "" {
			return nil
		}
		again, err := s.again(question)
		if err != nil || !again {
			return err
		}
	}
}

func (s *Shell) add() (string, error) {
	const another = `Add another? ("N" - return to main menu)>> `

	name, err := s.ask("Please, input contact name>> ")
	if err != nil {
		return "", err
	}
	if err := model.ValidateName(name); err != nil {
		s.fail(err)
		return another, nil
	}

	phone, err := s.ask(fmt.Sprintf("Please, input phone number for %s>> ", name))
	if err != nil {
		return "", err
	}
	if err := model.ValidatePhone(phone); err != nil {
		s.fail(fmt.Errorf("sorry, your phone number is not valid %s: %w", phone, err))
		return another, nil
	}

	rawTitle, err := s.ask("Title (Mr/Ms, empty for none)>> ")
	if err != nil {
		return "", err
	}
	title, err := model.ParseTitle(rawTitle)
	if err != nil {
		s.fail(err)
		return another, nil
	}

	c, err := model.New(phone, name, model.WithTitle(title))
	if err != nil {
		s.fail(err)
		return another, nil
	}

	end := s.tracer.Begin("add_contact", zap.String("phone", phone), zap.String("name", name))
	err = s.book.Add(c)
	end(err)
	if errors.Is(err, book.ErrDuplicatePhone) {
		s.fail(errors.New("contact exists"))
		return `Repeat another? ("N" - return to main menu)>> `, nil
	}
	if err != nil {
		return "", err
	}
	s.success("Contact added: " + c.String())
	return another, nil
}

func (s *Shell) find() (string, error) {
	raw, err := s.ask("1 - find by phone, 2 - find by contact name>> ")
	if err != nil {
		return "", err
	}

	var hits []model.Contact
	switch strings.TrimSpace(raw) {
	case "1":
		phone, err := s.ask("Enter phone for search>> ")
		if err != nil {
			return "", err
		}
		end := s.tracer.Begin("find_by_phone", zap.String("phone", phone))
		c, err := s.book.FindByPhone(phone)
		end(ignoreNotFound(err), zap.Bool("found", err == nil))
		switch {
		case errors.Is(err, book.ErrContactNotFound):
		case err != nil:
			return "", err
		default:
			hits = []model.Contact{c}
		}
	case "2":
		name, err := s.ask("Enter name for search>> ")
		if err != nil {
			return "", err
		}
		end := s.tracer.Begin("find_by_name", zap.String("query", name))
		found, err := s.book.FindByName(name)
		end(ignoreNotFound(err), zap.Int("hits", len(found)))
		if err != nil && !errors.Is(err, book.ErrContactNotFound) {
			return "", err
		}
		hits = found
	default:
		return `Sorry, you selected an unknown action. Repeat? ("N" - return to main menu)>> `, nil
	}

	if len(hits) == 0 {
		return `Sorry, contact is not found. Repeat? ("N" - return to main menu)>> `, nil
	}
	if err := s.list(model.NewSet(hits...).Sorted()); err != nil {
		return "", err
	}
	return `Repeat find? ("N" - return to main menu)>> `, nil
}

func (s *Shell) remove() (string, error) {
	phone, err := s.ask("Enter phone number for remove>> ")
	if err != nil {
		return "", err
	}
	end := s.tracer.Begin("remove_contact", zap.String("phone", phone))
	c, err := s.book.Remove(phone)
	end(nil, zap.Bool("removed", err == nil))
	if errors.Is(err, book.ErrContactNotFound) {
		return `Sorry, contact not found. Repeat? ("N" - return to main menu)>> `, nil
	}
	if err != nil {
		return "", err
	}
	s.println(fmt.Sprintf("This contact %s will be deleted!", c))
	return `Repeat remove? ("N" - return to main menu)>> `, nil
}

func (s *Shell) edit() (string, error) {
	phone, err := s.ask("Enter phone number for edit>> ")
	if err != nil {
		return "", err
	}
	current, err := s.book.FindByPhone(phone)
	if errors.Is(err, book.ErrContactNotFound) {
		return `Sorry, contact not found. Repeat? ("N" - return to main menu)>> `, nil
	}

	name, err := s.ask(fmt.Sprintf("Please, input new contact name for %q (empty keeps it)>> ", current.Name))
	if err != nil {
		return "", err
	}
	newPhone, err := s.ask(fmt.Sprintf("Please, input new phone number for %q (empty keeps it)>> ", current.Name))
	if err != nil {
		return "", err
	}

	end := s.tracer.Begin("edit_contact", zap.String("phone", phone), zap.String("name", name), zap.String("new_phone", newPhone))
	c, err := s.book.Edit(phone, book.Update{Name: name, Phone: newPhone})
	end(nil, zap.Bool("edited", err == nil))
	switch {
	case errors.Is(err, model.ErrInvalidPhone), errors.Is(err, model.ErrInvalidName), errors.Is(err, book.ErrDuplicatePhone):
		s.fail(err)
	case err != nil:
		return "", err
	default:
		s.success("Contact updated: " + c.String())
	}
	return `Repeat edit? ("N" - return to main menu)>> `, nil
}

func (s *Shell) backup() error {
	end := s.tracer.Begin("backup", zap.String("path", s.opts.BackupPath))
	path, err := s.book.Backup(s.opts.BackupPath)
	end(err)
	if err != nil {
		return err
	}
	return s.pause(fmt.Sprintf("Backup done... created file: %s", path))
}

func (s *Shell) save() error {
	end := s.tracer.Begin("save")
	n, err := s.book.Save()
	end(ignoreNoChanges(err), zap.Int("rows", n))
	switch {
	case errors.Is(err, book.ErrNoChanges):
		s.println("There were no changes!")
	case err != nil:
		return err
	}
	return s.pause("Press Enter to continue...")
}

func (s *Shell) exit() error {
	if !s.book.Dirty() {
		return nil
	}
	answer, err := s.ask(`You have made changes. Save to disk? ("N" - exit without saving)>> `)
	if err != nil {
		return s.finish(err)
	}
	if strings.EqualFold(strings.TrimSpace(answer), "n") {
		return nil
	}
	end := s.tracer.Begin("save")
	_, err = s.book.Save()
	end(err)
	return err
}

func (s *Shell) list(contacts []model.Contact) error {
	if len(contacts) == 0 {
		line := strings.Repeat("=", 22)
		s.println(s.styles.banner.Render(line + "\nContact book is empty!\n" + line))
		return nil
	}

	chunk := store.ChunkFor(len(contacts), s.opts.Threshold, s.opts.DefaultChunk)
	for i, c := range contacts {
		s.println(c.String())
		if s.opts.Interactive && (i+1)%chunk == 0 && i+1 < len(contacts) {
			if _, err := s.ask("Press Enter to continue..."); err != nil {
				return err
			}
		}
	}
	if s.opts.Interactive {
		if _, err := s.ask("Output is finished. Press Enter to continue..."); err != nil {
			return err
		}
	}
	return nil
}

// ask prints prompt and reads one line. io.EOF means input is exhausted.
func (s *Shell) ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		fmt.Fprintln(s.out)
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(s.in.Text(), "\r"), nil
}

// again reads a yes/no answer where only "N" means no.
func (s *Shell) again(prompt string) (bool, error) {
	answer, err := s.ask(prompt)
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(strings.TrimSpace(answer), "n"), nil
}

func (s *Shell) pause(msg string) error {
	s.println(msg)
	if !s.opts.Interactive {
		return nil
	}
	_, err := s.ask("Press Enter to continue...")
	return err
}

// finish turns end of input into a clean exit, warning about unsaved work.
func (s *Shell) finish(err error) error {
	if !errors.Is(err, io.EOF) {
		return err
	}
	if s.book.Dirty() {
		s.fail(errors.New("input closed, unsaved changes were discarded"))
	}
	return nil
}

func (s *Shell) println(msg string) {
	fmt.Fprintln(s.out, msg)
}

func (s *Shell) success(msg string) {
	s.println(s.styles.ok.Render(msg))
}

func (s *Shell) fail(err error) {
	s.println(s.styles.err.Render(err.Error()))
}

func ignoreNoChanges(err error) error {
	if errors.Is(err, book.ErrNoChanges) {
		return nil
	}
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, book.ErrContactNotFound) {
		return nil
	}
	return err
}
