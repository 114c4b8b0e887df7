package cli

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gourmet/internal/media"
	"github.com/mesh-intelligence/gourmet/internal/record"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// recordFlags are the record fields settable from the command line.
type recordFlags struct {
	name        string
	date        string
	comment     string
	tags        string
	rating      int
	favorite    bool
	photos      []string
	clearPhotos bool
}

func (f *recordFlags) bind(cmd *cobra.Command, edit bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "shop name")
	fs.StringVar(&f.date, "date", "", "visit date, e.g. 2024-05-01")
	fs.StringVar(&f.comment, "comment", "", "free-form comment")
	fs.StringVar(&f.tags, "tags", "", "comma-separated tags")
	fs.IntVar(&f.rating, "rating", 0, "rating from 1 to 5 (0 = unrated)")
	fs.BoolVar(&f.favorite, "favorite", false, "mark as favorite")
	fs.StringArrayVar(&f.photos, "photo", nil, "photo file to attach (repeatable)")
	if edit {
		fs.BoolVar(&f.clearPhotos, "clear-photos", false, "remove existing photos before attaching new ones")
	}
}

// parseID parses a record id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, arg)
	}
	return id, nil
}

func (a *app) newAddCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a visit",
		Long: `Add stores a new visit record. Shop name and visit date are required.

Example:
  gourmet add --name "Cafe Luna" --date 2024-05-01 --rating 4 --tags "coffee, brunch"
  gourmet add --name "Ramen Taro" --date 2024-05-02 --photo bowl.jpg --favorite`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			photos, err := media.Load(f.photos...)
			if err != nil {
				return err
			}
			draft := types.Draft{
				ShopName:  f.name,
				VisitDate: f.date,
				Comment:   f.comment,
				Images:    photos,
				Rating:    f.rating,
				Favorite:  f.favorite,
				Tags:      record.ParseTags(f.tags),
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.records.Upsert(cmd.Context(), draft, false)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved record %d: %s\n", rec.ID, rec.ShopName)
			return nil
		},
	}
	f.bind(cmd, false)
	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	var (
		search    string
		sortKey   string
		favorites bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visit records",
		Long: `List shows records, newest first unless --sort says otherwise.

Sort keys: newest, oldest, rating-high, rating-low, name, favorite.

Example:
  gourmet list
  gourmet list --search luna
  gourmet list --favorites --sort rating-high`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.records.ListAll(cmd.Context(), types.ListFilter{
				SearchText:    search,
				FavoritesOnly: favorites,
				SortKey:       types.SortKey(sortKey),
			})
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), records)
			}
			printEntries(cmd.OutOrStdout(), entries(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive shop name filter")
	cmd.Flags().StringVar(&sortKey, "sort", string(types.SortNewest), "sort key")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorites")
	return cmd
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display a record with full details",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.records.GetOne(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func (a *app) newEditCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a record",
		Long: `Edit updates only the fields whose flags are given. New photos are appended
unless --clear-photos is set. The record keeps its id and creation time.

Example:
  gourmet edit 3 --rating 5 --favorite
  gourmet edit 3 --clear-photos --photo better.jpg`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			photos, err := media.Load(f.photos...)
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.records.GetOne(cmd.Context(), id)
			if err != nil {
				return err
			}

			draft := types.Draft{
				ID:        rec.ID,
				ShopName:  rec.ShopName,
				VisitDate: rec.VisitDate,
				Comment:   rec.Comment,
				Images:    rec.Images,
				Rating:    rec.Rating,
				Favorite:  rec.Favorite,
				Tags:      rec.Tags,
			}
			fs := cmd.Flags()
			if fs.Changed("name") {
				draft.ShopName = f.name
			}
			if fs.Changed("date") {
				draft.VisitDate = f.date
			}
			if fs.Changed("comment") {
				draft.Comment = f.comment
			}
			if fs.Changed("tags") {
				draft.Tags = record.ParseTags(f.tags)
			}
			if fs.Changed("rating") {
				draft.Rating = f.rating
			}
			if fs.Changed("favorite") {
				draft.Favorite = f.favorite
			}
			if f.clearPhotos {
				draft.Images = nil
			}
			draft.Images = append(draft.Images, photos...)

			updated, err := s.records.Upsert(cmd.Context(), draft, true)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated record %d: %s\n", updated.ID, updated.ShopName)
			return nil
		},
	}
	f.bind(cmd, true)
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.records.GetOne(cmd.Context(), id)
			if err != nil {
				return err
			}
			confirm := &promptConfirmer{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout(), yes: yes}
			if !confirm.Confirm(cmd.Context(), fmt.Sprintf("Delete record %d (%s)?", rec.ID, rec.ShopName)) {
				return types.ErrDeclined
			}
			if err := s.records.DeleteOne(cmd.Context(), id); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d.\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}
