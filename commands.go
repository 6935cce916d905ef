package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/n3wscott/contactbook/internal/book"
	"github.com/n3wscott/contactbook/internal/config"
	"github.com/n3wscott/contactbook/internal/fswatch"
	"github.com/n3wscott/contactbook/internal/load"
	"github.com/n3wscott/contactbook/internal/logging"
	"github.com/n3wscott/contactbook/internal/model"
	"github.com/n3wscott/contactbook/internal/shell"
	"github.com/n3wscott/contactbook/internal/store"
	"github.com/n3wscott/contactbook/internal/xmlgen"
)

// app carries what every command needs once the persistent pre-run has
// loaded configuration and opened the book.
type app struct {
	in io.Reader

	configPath string
	dir        string
	separator  string
	logLevel   string

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	tracer   *logging.Tracer
	book     *book.Book
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "contactbook",
		Short: "Keep a local address book of names and phone numbers",
		Long: `contactbook stores contacts in a delimited database file in your data
directory. Run it without a command for the interactive menu.

Examples:
  # Interactive menu
  contactbook

  # Add and look up contacts
  contactbook add "Anna Smith" +15550100
  contactbook find ann`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsBook(cmd) {
				return nil
			}
			progressOut := cmd.ErrOrStderr()
			if cmd == cmd.Root() {
				progressOut = cmd.OutOrStdout()
			}
			return a.open(progressOut)
		},
		RunE: a.runShell,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default <home>/contact_book/config.yaml)")
	flags.StringVar(&a.dir, "dir", "", "data directory holding the database, backup and log files")
	flags.StringVar(&a.separator, "separator", "", "field separator of database rows")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		a.addCmd(),
		a.findCmd(),
		a.listCmd(),
		a.removeCmd(),
		a.editCmd(),
		a.backupCmd(),
		a.restoreCmd(),
		a.importCmd(),
		a.exportCmd(),
	)
	return root
}

// needsBook is false for cobra's own help and completion commands, which
// must not create the data directory or touch the database.
func needsBook(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// open loads configuration, applies flag overrides, starts logging and
// loads the database file.
func (a *app) open(progressOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dir != "" {
		cfg.Dir = a.dir
	}
	if a.separator != "" {
		cfg.Separator = a.separator
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDir(); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	a.tracer = logging.NewTracer(logger)

	opts := cfg.StoreOptions()
	opts.Progress = shell.ProgressPrinter(progressOut)

	end := a.tracer.Begin("open", zap.String("path", cfg.DBasePath()))
	b, err := book.Open(cfg.DBasePath(), opts, logger.Sugar())
	end(err)
	if err != nil {
		return err
	}
	a.book = b
	return nil
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}
	err := a.closeLog()
	a.closeLog = nil
	return err
}

// save persists pending changes; a clean book is not an error here.
func (a *app) save() error {
	end := a.tracer.Begin("save")
	n, err := a.book.Save()
	if errors.Is(err, book.ErrNoChanges) {
		err = nil
	}
	end(err, zap.Int("rows", n))
	return err
}

func (a *app) runShell(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sugar := a.logger.Sugar()
	if a.cfg.Debounce > 0 {
		w, err := fswatch.New(a.book.Path(), a.cfg.Debounce, sugar)
		if err != nil {
			return err
		}
		if err := w.Start(ctx, a.reloadFromDisk); err != nil {
			return err
		}
		defer w.Wait()
	}

	out := cmd.OutOrStdout()
	sh := shell.New(a.book, shell.Options{
		In:           a.in,
		Out:          out,
		Welcome:      a.cfg.Welcome,
		Interactive:  isTerminal(a.in) && isTerminal(out),
		Threshold:    a.cfg.NumOfLines,
		DefaultChunk: a.cfg.MarkPrint,
		BackupPath:   a.cfg.BackupPath(),
		Tracer:       a.tracer,
	})
	err := sh.Run()
	cancel()
	return err
}

// reloadFromDisk picks up edits made to the database file by another
// process. Unsaved changes in this session win.
func (a *app) reloadFromDisk() {
	err := a.book.Reload()
	switch {
	case errors.Is(err, book.ErrUnsavedChanges):
		a.logger.Warn("database file changed on disk, keeping unsaved changes", zap.String("path", a.book.Path()))
	case err != nil:
		a.logger.Warn("reload failed", zap.Error(err))
	}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) addCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add NAME PHONE",
		Short: "Add a contact and save the book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseTitle(title)
			if err != nil {
				return err
			}
			c, err := model.New(args[1], args[0], model.WithTitle(t))
			if err != nil {
				return err
			}
			end := a.tracer.Begin("add_contact", zap.String("phone", c.Phone), zap.String("name", c.Name))
			err = a.book.Add(c)
			end(err)
			if err != nil {
				return fmt.Errorf("add %s: %w", c.Phone, err)
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact added: %s\n", c)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "form of address: Mr or Ms")
	return cmd
}

func (a *app) findCmd() *cobra.Command {
	var byPhone bool
	cmd := &cobra.Command{
		Use:   "find QUERY",
		Short: "Find contacts by name, or by exact phone number with --phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			var hits []model.Contact
			if byPhone {
				end := a.tracer.Begin("find_by_phone", zap.String("phone", query))
				c, err := a.book.FindByPhone(query)
				end(nil, zap.Bool("found", err == nil))
				if err != nil {
					return fmt.Errorf("find %q: %w", query, err)
				}
				hits = []model.Contact{c}
			} else {
				end := a.tracer.Begin("find_by_name", zap.String("query", query))
				found, err := a.book.FindByName(query)
				end(nil, zap.Int("hits", len(found)))
				if err != nil {
					return fmt.Errorf("find %q: %w", query, err)
				}
				hits = model.NewSet(found...).Sorted()
			}
			printContacts(cmd.OutOrStdout(), hits)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byPhone, "phone", false, "treat QUERY as an exact phone number")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all contacts sorted by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contacts := a.book.Contacts()
			if len(contacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Contact book is empty!")
				return nil
			}
			printContacts(cmd.OutOrStdout(), contacts)
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove PHONE",
		Short: "Remove the contact with PHONE and save the book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			end := a.tracer.Begin("remove_contact", zap.String("phone", args[0]))
			c, err := a.book.Remove(args[0])
			end(err)
			if err != nil {
				return fmt.Errorf("remove %s: %w", args[0], err)
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact removed: %s\n", c)
			return nil
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var upd book.Update
	cmd := &cobra.Command{
		Use:   "edit PHONE",
		Short: "Change the name or phone number of a contact and save the book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if upd.Name == "" && upd.Phone == "" {
				return errors.New("edit: nothing to change, pass --name or --phone")
			}
			end := a.tracer.Begin("edit_contact", zap.String("phone", args[0]), zap.String("name", upd.Name), zap.String("new_phone", upd.Phone))
			c, err := a.book.Edit(args[0], upd)
			end(err)
			if err != nil {
				return fmt.Errorf("edit %s: %w", args[0], err)
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact updated: %s\n", c)
			return nil
		},
	}
	cmd.Flags().StringVar(&upd.Name, "name", "", "new contact name")
	cmd.Flags().StringVar(&upd.Phone, "phone", "", "new phone number")
	return cmd
}

func (a *app) backupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON backup of the book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.BackupPath()
			}
			end := a.tracer.Begin("backup", zap.String("path", out))
			path, err := a.book.Backup(out)
			end(err)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup done... created file: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "backup file (default from config)")
	return cmd
}

func (a *app) restoreCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the book with the contents of a JSON backup and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" {
				from = a.cfg.BackupPath()
			}
			end := a.tracer.Begin("restore", zap.String("path", from))
			set, err := store.ReadBackup(from)
			end(err)
			if err != nil {
				return err
			}
			a.book.Restore(set)
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d contacts from %s\n", set.Len(), from)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "backup file (default from config)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import PATH",
		Short: "Merge contacts from a YAML file or a directory of YAML files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			end := a.tracer.Begin("import", zap.String("path", args[0]), zap.Bool("overwrite", overwrite))
			res, err := load.New(a.logger.Sugar()).Import(args[0])
			if err != nil {
				end(err)
				return err
			}
			merged := a.book.Merge(res.Contacts, overwrite)
			end(nil, zap.Int("added", merged.Added), zap.Int("replaced", merged.Replaced), zap.Int("skipped", merged.Skipped))
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported from %d file(s): added %d, replaced %d, skipped %d existing, %d invalid\n",
				len(res.Files), merged.Added, merged.Replaced, merged.Skipped, res.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace contacts whose phone number already exists")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the book as Grandstream XML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			end := a.tracer.Begin("export", zap.String("path", out))
			payload, err := xmlgen.Build(a.book.Contacts())
			if err != nil {
				end(err)
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(payload)
			} else if err = os.WriteFile(out, payload, 0o644); err == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d contacts to %s\n", a.book.Len(), out)
			}
			end(err)
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file, - or empty for stdout")
	return cmd
}

func printContacts(w io.Writer, contacts []model.Contact) {
	for _, c := range contacts {
		fmt.Fprintln(w, c.String())
	}
}
