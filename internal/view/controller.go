// Package view holds the interactive session logic: which screen is shown,
// what the form contains and how user actions move between list, form and
// detail. Rendering is left to the caller.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/gourmet/internal/exchange"
	"github.com/mesh-intelligence/gourmet/internal/record"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// Notification texts.
const (
	MsgSaved    = "Record saved."
	MsgUpdated  = "Record updated."
	MsgDeleted  = "Record deleted."
	MsgNotFound = "Record not found."
)

// Records is the repository surface the controller drives.
type Records interface {
	ListAll(ctx context.Context, f types.ListFilter) ([]*types.Record, error)
	GetOne(ctx context.Context, id int64) (*types.Record, error)
	Upsert(ctx context.Context, d types.Draft, isEdit bool) (*types.Record, error)
	DeleteOne(ctx context.Context, id int64) error
}

// Exchanger runs backups.
type Exchanger interface {
	Export(ctx context.Context, w io.Writer, opts exchange.Options) (exchange.ExportResult, error)
	Import(ctx context.Context, r io.Reader, opts exchange.Options, confirm exchange.Confirmer) (exchange.ImportOutcome, error)
}

// Confirmer asks a yes/no question and blocks until answered.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(msg string)
}

// Controller owns a UiState and applies user actions to it. It is not safe
// for concurrent use.
type Controller struct {
	records  Records
	exchange Exchanger
	confirm  Confirmer
	notify   Notifier
	log      zerolog.Logger

	state  UiState
	list   []*types.Record
	detail *types.Record
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// NewController returns a Controller in list mode with an empty list. Call
// Start to load it.
func NewController(records Records, exch Exchanger, confirm Confirmer, notify Notifier, opts ...Option) *Controller {
	c := &Controller{
		records:  records,
		exchange: exch,
		confirm:  confirm,
		notify:   notify,
		log:      zerolog.Nop(),
		state:    UiState{Sort: types.SortNewest},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the list.
func (c *Controller) Start(ctx context.Context) error {
	return c.Refresh(ctx)
}

// Refresh re-queries the list with the current search, sort and filter.
func (c *Controller) Refresh(ctx context.Context) error {
	list, err := c.records.ListAll(ctx, c.state.filter())
	if err != nil {
		return err
	}
	c.list = list
	return nil
}

// State returns a copy of the current state.
func (c *Controller) State() UiState {
	s := c.state
	s.Form.Images = slices.Clone(s.Form.Images)
	return s
}

// List returns the current list. Active marks the entry of the current
// record and is recomputed on every call.
func (c *Controller) List() []Entry {
	entries := make([]Entry, len(c.list))
	for i, r := range c.list {
		entries[i] = Entry{
			ID:        r.ID,
			ShopName:  r.ShopName,
			VisitDate: r.VisitDate,
			Rating:    r.Rating,
			Favorite:  r.Favorite,
			Photos:    len(r.Images),
			Active:    c.state.CurrentID != 0 && r.ID == c.state.CurrentID,
		}
	}
	return entries
}

// Detail returns the record on the detail screen.
func (c *Controller) Detail() (*types.Record, bool) {
	if c.state.Mode != ModeDetail || c.detail == nil {
		return nil, false
	}
	return c.detail.Clone(), true
}

// AddNew opens an empty create form.
func (c *Controller) AddNew() error {
	if c.state.Mode == ModeForm {
		return c.invalid("add")
	}
	c.state.Mode = ModeForm
	c.state.FormMode = FormCreate
	c.state.CurrentID = 0
	c.state.Form = FormState{Images: []string{}}
	c.detail = nil
	return nil
}

// Select shows the record with the given id. A missing record is reported,
// the list refreshed, and the state left as it was.
func (c *Controller) Select(ctx context.Context, id int64) error {
	if c.state.Mode == ModeForm {
		return c.invalid("select")
	}
	rec, err := c.records.GetOne(ctx, id)
	if err != nil {
		return c.lookupFailed(ctx, err)
	}
	c.show(rec)
	return nil
}

// Edit opens the edit form for the displayed record, filled from the store.
func (c *Controller) Edit(ctx context.Context) error {
	if c.state.Mode != ModeDetail {
		return c.invalid("edit")
	}
	rec, err := c.records.GetOne(ctx, c.state.CurrentID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.home()
		}
		return c.lookupFailed(ctx, err)
	}
	c.state.Mode = ModeForm
	c.state.FormMode = FormEdit
	c.state.Form = FormState{
		Fields: Fields{
			ShopName:  rec.ShopName,
			VisitDate: rec.VisitDate,
			Comment:   rec.Comment,
			Tags:      record.FormatTags(rec.Tags),
			Favorite:  rec.Favorite,
		},
		Images: slices.Clone(rec.Images),
		Rating: rec.Rating,
	}
	c.detail = rec
	return nil
}

// SetFields replaces the text inputs of the open form.
func (c *Controller) SetFields(f Fields) error {
	if c.state.Mode != ModeForm {
		return c.invalid("set fields")
	}
	c.state.Form.Fields = f
	return nil
}

// StageImages appends photos to the form.
func (c *Controller) StageImages(images ...string) error {
	if c.state.Mode != ModeForm {
		return c.invalid("stage photos")
	}
	c.state.Form.Images = append(c.state.Form.Images, images...)
	return nil
}

// RemoveImage drops the staged photo at index i after confirmation.
func (c *Controller) RemoveImage(ctx context.Context, i int) error {
	if c.state.Mode != ModeForm {
		return c.invalid("remove photo")
	}
	if i < 0 || i >= len(c.state.Form.Images) {
		return fmt.Errorf("%w: no photo %d", types.ErrValidation, i+1)
	}
	if !c.confirm.Confirm(ctx, "Remove this photo from the list?") {
		return types.ErrDeclined
	}
	c.state.Form.Images = slices.Delete(c.state.Form.Images, i, i+1)
	return nil
}

// SetRating stages a rating; 0 clears it.
func (c *Controller) SetRating(n int) error {
	if c.state.Mode != ModeForm {
		return c.invalid("rate")
	}
	if n < types.RatingUnset || n > types.RatingMax {
		return fmt.Errorf("%w: rating must be between %d and %d", types.ErrValidation, types.RatingUnset, types.RatingMax)
	}
	c.state.Form.Rating = n
	return nil
}

// Cancel leaves the form after confirmation: a create form returns to the
// list, an edit form to the record it came from.
func (c *Controller) Cancel(ctx context.Context) error {
	if c.state.Mode != ModeForm {
		return c.invalid("cancel")
	}
	if !c.confirm.Confirm(ctx, "Discard your changes?") {
		return types.ErrDeclined
	}
	if c.state.FormMode == FormCreate {
		c.home()
		return nil
	}
	rec, err := c.records.GetOne(ctx, c.state.CurrentID)
	if err != nil {
		c.home()
		return c.lookupFailed(ctx, err)
	}
	c.show(rec)
	return nil
}

// Submit saves the form. A validation failure keeps the form open. On
// success a create returns to the list and an edit shows the saved record.
func (c *Controller) Submit(ctx context.Context) (*types.Record, error) {
	if c.state.Mode != ModeForm {
		return nil, c.invalid("submit")
	}
	form := c.state.Form
	isEdit := c.state.FormMode == FormEdit
	draft := types.Draft{
		ShopName:  form.ShopName,
		VisitDate: form.VisitDate,
		Comment:   form.Comment,
		Images:    slices.Clone(form.Images),
		Rating:    form.Rating,
		Favorite:  form.Favorite,
		Tags:      record.ParseTags(form.Tags),
	}
	if isEdit {
		draft.ID = c.state.CurrentID
	}

	rec, err := c.records.Upsert(ctx, draft, isEdit)
	if err != nil {
		c.notify.Notify(message(err))
		return nil, err
	}
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("refreshing list after save")
	}
	if isEdit {
		c.show(rec)
		c.notify.Notify(MsgUpdated)
	} else {
		c.home()
		c.notify.Notify(MsgSaved)
	}
	return rec, nil
}

// Back returns from the detail screen to the list.
func (c *Controller) Back() error {
	if c.state.Mode != ModeDetail {
		return c.invalid("go back")
	}
	c.home()
	return nil
}

// Delete removes the displayed record after confirmation and returns to the
// list. A record that is already gone is reported the same way.
func (c *Controller) Delete(ctx context.Context) error {
	if c.state.Mode != ModeDetail || c.state.CurrentID == 0 {
		return c.invalid("delete")
	}
	if !c.confirm.Confirm(ctx, "Delete this record?") {
		return types.ErrDeclined
	}
	err := c.records.DeleteOne(ctx, c.state.CurrentID)
	switch {
	case err == nil:
		c.notify.Notify(MsgDeleted)
	case errors.Is(err, types.ErrNotFound):
		c.notify.Notify(MsgNotFound)
	default:
		c.notify.Notify(message(err))
		return err
	}
	c.home()
	if rerr := c.Refresh(ctx); rerr != nil {
		return rerr
	}
	return err
}

// Search sets the shop-name query and re-queries.
func (c *Controller) Search(ctx context.Context, text string) error {
	c.state.Search = text
	return c.Refresh(ctx)
}

// SortBy sets the sort key and re-queries. An unknown key changes nothing.
func (c *Controller) SortBy(ctx context.Context, key types.SortKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidSortKey, key)
	}
	c.state.Sort = key
	return c.Refresh(ctx)
}

// ShowFavoritesOnly toggles the favorites filter and re-queries.
func (c *Controller) ShowFavoritesOnly(ctx context.Context, on bool) error {
	c.state.FavoritesOnly = on
	return c.Refresh(ctx)
}

// Export writes a backup of every record to w.
func (c *Controller) Export(ctx context.Context, w io.Writer, opts exchange.Options) (exchange.ExportResult, error) {
	res, err := c.exchange.Export(ctx, w, opts)
	if err != nil {
		c.notify.Notify(message(err))
		return res, err
	}
	c.notify.Notify(fmt.Sprintf("Exported %d records.", res.Count))
	return res, nil
}

// Import reads a backup from r, asking for confirmation first, and
// refreshes the list.
func (c *Controller) Import(ctx context.Context, r io.Reader, opts exchange.Options) (exchange.ImportOutcome, error) {
	outcome, err := c.exchange.Import(ctx, r, opts, c.confirm)
	if errors.Is(err, types.ErrDeclined) {
		return outcome, err
	}
	if outcome.Imported > 0 {
		if rerr := c.Refresh(ctx); rerr != nil {
			c.log.Warn().Err(rerr).Msg("refreshing list after import")
		}
	}
	if err != nil {
		c.notify.Notify("Import failed: " + message(err))
		return outcome, err
	}
	c.notify.Notify(fmt.Sprintf("Imported %d records.", outcome.Imported))
	return outcome, nil
}

func (c *Controller) show(rec *types.Record) {
	c.state.Mode = ModeDetail
	c.state.CurrentID = rec.ID
	c.detail = rec
}

func (c *Controller) home() {
	c.state.Mode = ModeList
	c.state.CurrentID = 0
	c.detail = nil
}

// lookupFailed reports a failed fetch. A missing record also refreshes the
// list so it disappears from view.
func (c *Controller) lookupFailed(ctx context.Context, err error) error {
	if errors.Is(err, types.ErrNotFound) {
		c.notify.Notify(MsgNotFound)
		if rerr := c.Refresh(ctx); rerr != nil {
			c.log.Warn().Err(rerr).Msg("refreshing list")
		}
		return err
	}
	c.notify.Notify(message(err))
	return err
}

func (c *Controller) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s in %s view", types.ErrInvalidState, action, c.state.Mode)
}

// message turns an error into user-facing text.
func message(err error) string {
	switch {
	case errors.Is(err, types.ErrValidation):
		return err.Error()
	case errors.Is(err, types.ErrNotFound):
		return MsgNotFound
	case errors.Is(err, types.ErrParse):
		return "the file is not a valid backup"
	default:
		return "something went wrong: " + err.Error()
	}
}
