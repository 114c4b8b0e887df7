package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gourmet/internal/exchange"
	"github.com/mesh-intelligence/gourmet/internal/media"
	"github.com/mesh-intelligence/gourmet/internal/view"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

func (a *app) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse and edit records interactively",
		Long:  "Shell opens an interactive session with list, detail and form screens.\nType help for the command list.",
		Args:  exactArgs(0),
		RunE:  a.runShell,
	}
}

func (a *app) runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	notes := &printNotifier{out: out}
	ctrl := view.NewController(s.records, s.exchange, &promptConfirmer{in: in, out: out}, notes,
		view.WithLogger(a.log))
	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	sh := &shell{
		ctrl:     ctrl,
		in:       in,
		out:      out,
		notes:    notes,
		prefix:   a.settings.exportPrefix,
		compress: a.settings.exportCompress,
		log:      a.log,
	}
	return sh.run(ctx)
}

// shell is a line-oriented front end for a view.Controller.
type shell struct {
	ctrl     *view.Controller
	in       *bufio.Reader
	out      io.Writer
	notes    *printNotifier
	prefix   string
	compress bool
	log      zerolog.Logger
}

type shellCmd struct {
	name string
	args string
	help string
	run  func(sh *shell, ctx context.Context, arg string) error
}

// shellCommands returns the command table, in help order.
func shellCommands() []shellCmd {
	return []shellCmd{
		{"list", "", "show the record list", (*shell).cmdList},
		{"search", "[text]", "filter the list by shop name", (*shell).cmdSearch},
		{"sort", "<key>", "sort by newest|oldest|rating-high|rating-low|name|favorite", (*shell).cmdSort},
		{"favorites", "on|off", "show only favorites", (*shell).cmdFavorites},
		{"show", "<id>", "open a record", (*shell).cmdShow},
		{"back", "", "return to the list", (*shell).cmdBack},
		{"new", "", "start a new record", (*shell).cmdNew},
		{"edit", "", "edit the open record", (*shell).cmdEdit},
		{"delete", "", "delete the open record", (*shell).cmdDelete},
		{"name", "<text>", "set the shop name", (*shell).cmdName},
		{"date", "<text>", "set the visit date", (*shell).cmdDate},
		{"comment", "<text>", "set the comment", (*shell).cmdComment},
		{"tags", "<a, b>", "set comma-separated tags", (*shell).cmdTags},
		{"fav", "on|off", "mark the form as favorite", (*shell).cmdFav},
		{"rate", "<0-5>", "set the rating (0 clears)", (*shell).cmdRate},
		{"photo", "<file>...", "attach photos", (*shell).cmdPhoto},
		{"unphoto", "<n>", "remove the n-th attached photo", (*shell).cmdUnphoto},
		{"form", "", "show the form", (*shell).cmdForm},
		{"save", "", "save the form", (*shell).cmdSave},
		{"cancel", "", "discard the form", (*shell).cmdCancel},
		{"export", "[file]", "write a backup", (*shell).cmdExport},
		{"import", "<file>", "add the records of a backup", (*shell).cmdImport},
		{"help", "", "show this help", (*shell).cmdHelp},
		{"quit", "", "leave the shell", nil},
	}
}

func lookupShellCmd(name string) (shellCmd, bool) {
	if name == "exit" {
		name = "quit"
	}
	for _, c := range shellCommands() {
		if c.name == name {
			return c, true
		}
	}
	return shellCmd{}, false
}

func (sh *shell) run(ctx context.Context) error {
	fmt.Fprintln(sh.out, "Gourmet log. Type help for commands.")
	sh.renderList()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(sh.out, sh.prompt())
		line, err := sh.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(sh.out)
				return nil
			}
			return err
		}

		name, arg := splitCommand(line)
		if name == "" {
			continue
		}
		c, ok := lookupShellCmd(name)
		if !ok {
			fmt.Fprintf(sh.out, "unknown command %q; type help\n", name)
			continue
		}
		if c.run == nil {
			return nil
		}

		before := sh.notes.count
		if err := c.run(sh, ctx, arg); err != nil {
			sh.log.Debug().Err(err).Str("command", name).Msg("shell command failed")
			// The controller has already told the user about most failures.
			if !errors.Is(err, types.ErrDeclined) && sh.notes.count == before {
				fmt.Fprintln(sh.out, "error:", err)
			}
		}
	}
}

func (sh *shell) prompt() string {
	s := sh.ctrl.State()
	switch s.Mode {
	case view.ModeForm:
		if s.FormMode == view.FormEdit {
			return fmt.Sprintf("gourmet:edit#%d> ", s.CurrentID)
		}
		return "gourmet:new> "
	case view.ModeDetail:
		return fmt.Sprintf("gourmet:#%d> ", s.CurrentID)
	default:
		return "gourmet> "
	}
}

// splitCommand splits a line into a lower-cased command and its argument.
func splitCommand(line string) (string, string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func parseOnOff(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "", "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", errUsage, arg)
}

// Rendering.

func (sh *shell) renderList() {
	printEntries(sh.out, sh.ctrl.List())
}

func (sh *shell) renderCurrent() {
	switch sh.ctrl.State().Mode {
	case view.ModeForm:
		sh.renderForm()
	case view.ModeDetail:
		if rec, ok := sh.ctrl.Detail(); ok {
			printRecord(sh.out, rec)
		}
	default:
		sh.renderList()
	}
}

func (sh *shell) renderForm() {
	s := sh.ctrl.State()
	if s.FormMode == view.FormEdit {
		fmt.Fprintf(sh.out, "Editing record %d\n", s.CurrentID)
	} else {
		fmt.Fprintln(sh.out, "New record")
	}
	f := s.Form
	fmt.Fprintf(sh.out, "  name:     %s\n", f.ShopName)
	fmt.Fprintf(sh.out, "  date:     %s\n", f.VisitDate)
	fmt.Fprintf(sh.out, "  comment:  %s\n", f.Comment)
	fmt.Fprintf(sh.out, "  tags:     %s\n", f.Tags)
	fmt.Fprintf(sh.out, "  rating:   %s\n", stars(f.Rating))
	fmt.Fprintf(sh.out, "  favorite: %t\n", f.Favorite)
	printPhotos(sh.out, f.Images)
}

// List controls.

func (sh *shell) cmdList(ctx context.Context, _ string) error {
	if err := sh.ctrl.Refresh(ctx); err != nil {
		return err
	}
	sh.renderList()
	return nil
}

func (sh *shell) cmdSearch(ctx context.Context, arg string) error {
	if err := sh.ctrl.Search(ctx, arg); err != nil {
		return err
	}
	sh.renderList()
	return nil
}

func (sh *shell) cmdSort(ctx context.Context, arg string) error {
	if err := sh.ctrl.SortBy(ctx, types.SortKey(arg)); err != nil {
		return err
	}
	sh.renderList()
	return nil
}

func (sh *shell) cmdFavorites(ctx context.Context, arg string) error {
	on, err := parseOnOff(arg)
	if err != nil {
		return err
	}
	if err := sh.ctrl.ShowFavoritesOnly(ctx, on); err != nil {
		return err
	}
	sh.renderList()
	return nil
}

// Navigation.

func (sh *shell) cmdShow(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	if err := sh.ctrl.Select(ctx, id); err != nil {
		return err
	}
	sh.renderCurrent()
	return nil
}

func (sh *shell) cmdBack(context.Context, string) error {
	if err := sh.ctrl.Back(); err != nil {
		return err
	}
	sh.renderList()
	return nil
}

func (sh *shell) cmdNew(context.Context, string) error {
	if err := sh.ctrl.AddNew(); err != nil {
		return err
	}
	sh.renderForm()
	return nil
}

func (sh *shell) cmdEdit(ctx context.Context, _ string) error {
	if err := sh.ctrl.Edit(ctx); err != nil {
		return err
	}
	sh.renderForm()
	return nil
}

func (sh *shell) cmdDelete(ctx context.Context, _ string) error {
	err := sh.ctrl.Delete(ctx)
	if err == nil || errors.Is(err, types.ErrNotFound) {
		sh.renderList()
	}
	return err
}

// Form editing.

func (sh *shell) setField(set func(*view.Fields)) error {
	f := sh.ctrl.State().Form.Fields
	set(&f)
	return sh.ctrl.SetFields(f)
}

func (sh *shell) cmdName(_ context.Context, arg string) error {
	return sh.setField(func(f *view.Fields) { f.ShopName = arg })
}

func (sh *shell) cmdDate(_ context.Context, arg string) error {
	return sh.setField(func(f *view.Fields) { f.VisitDate = arg })
}

func (sh *shell) cmdComment(_ context.Context, arg string) error {
	return sh.setField(func(f *view.Fields) { f.Comment = arg })
}

func (sh *shell) cmdTags(_ context.Context, arg string) error {
	return sh.setField(func(f *view.Fields) { f.Tags = arg })
}

func (sh *shell) cmdFav(_ context.Context, arg string) error {
	on, err := parseOnOff(arg)
	if err != nil {
		return err
	}
	return sh.setField(func(f *view.Fields) { f.Favorite = on })
}

func (sh *shell) cmdRate(_ context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("%w: rating %q is not a number", types.ErrValidation, arg)
	}
	return sh.ctrl.SetRating(n)
}

func (sh *shell) cmdPhoto(_ context.Context, arg string) error {
	files := strings.Fields(arg)
	if len(files) == 0 {
		return fmt.Errorf("%w: photo needs a file", errUsage)
	}
	if sh.ctrl.State().Mode != view.ModeForm {
		return fmt.Errorf("%w: open a form before attaching photos", types.ErrInvalidState)
	}
	urls, err := media.Load(files...)
	if err != nil {
		return err
	}
	if err := sh.ctrl.StageImages(urls...); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Attached %d photo(s).\n", len(urls))
	return nil
}

func (sh *shell) cmdUnphoto(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("%w: photo number %q", errUsage, arg)
	}
	if err := sh.ctrl.RemoveImage(ctx, n-1); err != nil {
		return err
	}
	sh.renderForm()
	return nil
}

func (sh *shell) cmdForm(context.Context, string) error {
	if sh.ctrl.State().Mode != view.ModeForm {
		return fmt.Errorf("%w: no form is open", types.ErrInvalidState)
	}
	sh.renderForm()
	return nil
}

func (sh *shell) cmdSave(ctx context.Context, _ string) error {
	if _, err := sh.ctrl.Submit(ctx); err != nil {
		return err
	}
	sh.renderCurrent()
	return nil
}

func (sh *shell) cmdCancel(ctx context.Context, _ string) error {
	if err := sh.ctrl.Cancel(ctx); err != nil {
		return err
	}
	sh.renderCurrent()
	return nil
}

// Backups.

func (sh *shell) cmdExport(ctx context.Context, arg string) error {
	opts := exchange.Options{Format: exchange.FormatJSON, Compress: sh.compress}
	path := arg
	if path == "" {
		path = exchange.FileName(sh.prefix, time.Now(), opts)
	} else {
		opts.Format = exchange.FormatFromPath(path)
		opts.Compress = exchange.CompressedPath(path)
	}

	var buf bytes.Buffer
	if _, err := sh.ctrl.Export(ctx, &buf, opts); err != nil {
		return err
	}
	if err := exchange.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	fmt.Fprintf(sh.out, "Backup written to %s\n", path)
	return nil
}

func (sh *shell) cmdImport(ctx context.Context, arg string) error {
	if arg == "" {
		return fmt.Errorf("%w: import needs a file", errUsage)
	}
	f, err := os.Open(arg)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()

	outcome, err := sh.ctrl.Import(ctx, f, exchange.Options{Format: exchange.FormatFromPath(arg)})
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Batch %s\n", outcome.BatchID)
	if sh.ctrl.State().Mode == view.ModeList {
		sh.renderList()
	}
	return nil
}

func (sh *shell) cmdHelp(context.Context, string) error {
	for _, c := range shellCommands() {
		usage := c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(sh.out, "  %-20s %s\n", usage, c.help)
	}
	return nil
}
