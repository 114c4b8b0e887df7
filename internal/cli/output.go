package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"

	"github.com/mesh-intelligence/gourmet/internal/media"
	"github.com/mesh-intelligence/gourmet/internal/record"
	"github.com/mesh-intelligence/gourmet/internal/view"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// maxNameWidth truncates shop names in list output.
const maxNameWidth = 40

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printEntries prints list entries as a table. The active entry is marked
// with an asterisk.
func printEntries(w io.Writer, entries []view.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tSHOP\tVISITED\tRATING\tFAV\tPHOTOS")
	for _, e := range entries {
		mark := " "
		if e.Active {
			mark = "*"
		}
		fav := ""
		if e.Favorite {
			fav = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%d\n",
			mark, e.ID, truncate(e.ShopName, maxNameWidth), e.VisitDate, stars(e.Rating), fav, e.Photos)
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "Total: %d record(s)\n", len(entries))
}

// entries converts records to list entries without an active mark.
func entries(records []*types.Record) []view.Entry {
	out := make([]view.Entry, len(records))
	for i, r := range records {
		out[i] = view.Entry{
			ID: r.ID, ShopName: r.ShopName, VisitDate: r.VisitDate,
			Rating: r.Rating, Favorite: r.Favorite, Photos: len(r.Images),
		}
	}
	return out
}

// printRecord prints the detail view of one record.
func printRecord(w io.Writer, r *types.Record) {
	fmt.Fprintf(w, "%s\n", r.ShopName)
	fmt.Fprintf(w, "  ID:       %d\n", r.ID)
	fmt.Fprintf(w, "  Visited:  %s\n", r.VisitDate)
	if r.Rating != types.RatingUnset {
		fmt.Fprintf(w, "  Rating:   %s\n", stars(r.Rating))
	}
	if r.Favorite {
		fmt.Fprintln(w, "  Favorite: yes")
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "  Tags:     %s\n", record.FormatTags(r.Tags))
	}
	if r.Comment != "" {
		fmt.Fprintln(w, "  Comment:")
		for _, line := range strings.Split(r.Comment, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	printPhotos(w, r.Images)
}

func printPhotos(w io.Writer, images []string) {
	if len(images) == 0 {
		return
	}
	fmt.Fprintf(w, "  Photos:   %d\n", len(images))
	for i, img := range images {
		mt := media.MediaType(img)
		if mt == "" {
			mt = "unknown"
		}
		fmt.Fprintf(w, "    %d. %s (%d bytes)\n", i+1, mt, len(img))
	}
}

func stars(n int) string {
	if n <= types.RatingUnset {
		return "-"
	}
	return strings.Repeat("*", n) + strings.Repeat(".", types.RatingMax-n)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// promptConfirmer asks yes/no questions on the terminal. With yes set it
// approves without asking.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func (p *promptConfirmer) Confirm(_ context.Context, prompt string) bool {
	if p.yes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// printNotifier shows controller notifications as lines of output.
type printNotifier struct {
	out   io.Writer
	count int
}

func (n *printNotifier) Notify(msg string) {
	n.count++
	fmt.Fprintln(n.out, msg)
}
