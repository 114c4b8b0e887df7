package view

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gourmet/internal/exchange"
	"github.com/mesh-intelligence/gourmet/internal/record"
	"github.com/mesh-intelligence/gourmet/internal/sqlite"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// answers replies to confirmations in order, then says yes.
type answers struct {
	replies []bool
	prompts []string
}

func (a *answers) Confirm(_ context.Context, prompt string) bool {
	a.prompts = append(a.prompts, prompt)
	if len(a.replies) == 0 {
		return true
	}
	r := a.replies[0]
	a.replies = a.replies[1:]
	return r
}

type inbox struct{ msgs []string }

func (n *inbox) Notify(msg string) { n.msgs = append(n.msgs, msg) }

func (n *inbox) last() string {
	if len(n.msgs) == 0 {
		return ""
	}
	return n.msgs[len(n.msgs)-1]
}

type fixture struct {
	ctrl    *Controller
	repo    *record.Repository
	confirm *answers
	notes   *inbox
}

func setupController(t *testing.T) fixture {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := record.NewRepository(store)
	f := fixture{repo: repo, confirm: &answers{}, notes: &inbox{}}
	f.ctrl = NewController(repo, exchange.NewService(repo, store), f.confirm, f.notes)
	require.NoError(t, f.ctrl.Start(context.Background()))
	return f
}

// createVia adds a record through the form.
func createVia(t *testing.T, c *Controller, name string) *types.Record {
	t.Helper()
	require.NoError(t, c.AddNew())
	require.NoError(t, c.SetFields(Fields{ShopName: name, VisitDate: "2024-05-01"}))
	rec, err := c.Submit(context.Background())
	require.NoError(t, err)
	return rec
}

func TestInitialState(t *testing.T) {
	f := setupController(t)

	s := f.ctrl.State()
	assert.Equal(t, ModeList, s.Mode)
	assert.Zero(t, s.CurrentID)
	assert.Equal(t, types.SortNewest, s.Sort)
	assert.Empty(t, f.ctrl.List())
}

func TestCreateFlow(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)

	require.NoError(t, f.ctrl.AddNew())
	assert.Equal(t, ModeForm, f.ctrl.State().Mode)
	assert.Equal(t, FormCreate, f.ctrl.State().FormMode)

	require.NoError(t, f.ctrl.SetFields(Fields{ShopName: "Cafe Luna", VisitDate: "2024-05-01", Tags: "coffee, brunch", Favorite: true}))
	require.NoError(t, f.ctrl.StageImages("data:image/png;base64,AAAA", "data:image/png;base64,BBBB"))
	require.NoError(t, f.ctrl.SetRating(4))

	rec, err := f.ctrl.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgSaved, f.notes.last())
	assert.Equal(t, ModeList, f.ctrl.State().Mode)
	assert.Equal(t, []string{"coffee", "brunch"}, rec.Tags)
	assert.Equal(t, 4, rec.Rating)
	assert.Len(t, rec.Images, 2)

	list := f.ctrl.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Cafe Luna", list[0].ShopName)
	assert.False(t, list[0].Active)
}

func TestSubmitValidationKeepsForm(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)

	require.NoError(t, f.ctrl.AddNew())
	require.NoError(t, f.ctrl.SetFields(Fields{ShopName: "  ", VisitDate: "2024-05-01"}))
	_, err := f.ctrl.Submit(ctx)
	assert.ErrorIs(t, err, types.ErrValidation)

	s := f.ctrl.State()
	assert.Equal(t, ModeForm, s.Mode)
	assert.Equal(t, "2024-05-01", s.Form.VisitDate, "form input is kept")
	assert.Contains(t, f.notes.last(), "required")
	assert.Empty(t, f.ctrl.List())
}

func TestSelectAndActiveEntry(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)
	a := createVia(t, f.ctrl, "A")
	createVia(t, f.ctrl, "B")

	require.NoError(t, f.ctrl.Select(ctx, a.ID))
	assert.Equal(t, ModeDetail, f.ctrl.State().Mode)

	detail, ok := f.ctrl.Detail()
	require.True(t, ok)
	assert.Equal(t, "A", detail.ShopName)

	active := 0
	for _, e := range f.ctrl.List() {
		if e.Active {
			active++
			assert.Equal(t, a.ID, e.ID)
		}
	}
	assert.Equal(t, 1, active)

	require.NoError(t, f.ctrl.Back())
	assert.Equal(t, ModeList, f.ctrl.State().Mode)
	for _, e := range f.ctrl.List() {
		assert.False(t, e.Active)
	}
}

func TestSelectMissingLeavesState(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)
	a := createVia(t, f.ctrl, "A")
	require.NoError(t, f.ctrl.Select(ctx, a.ID))
	before := f.ctrl.State()

	err := f.ctrl.Select(ctx, 99)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, MsgNotFound, f.notes.last())
	assert.Equal(t, before, f.ctrl.State())
}

func TestEditFlow(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)

	require.NoError(t, f.ctrl.AddNew())
	require.NoError(t, f.ctrl.SetFields(Fields{ShopName: "A", VisitDate: "2024-05-01", Tags: "x,y"}))
	require.NoError(t, f.ctrl.StageImages("one"))
	require.NoError(t, f.ctrl.SetRating(3))
	original, err := f.ctrl.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Select(ctx, original.ID))
	require.NoError(t, f.ctrl.Edit(ctx))

	s := f.ctrl.State()
	assert.Equal(t, ModeForm, s.Mode)
	assert.Equal(t, FormEdit, s.FormMode)
	assert.Equal(t, "A", s.Form.ShopName)
	assert.Equal(t, "x, y", s.Form.Tags)
	assert.Equal(t, []string{"one"}, s.Form.Images)
	assert.Equal(t, 3, s.Form.Rating)

	require.NoError(t, f.ctrl.SetFields(Fields{ShopName: "B", VisitDate: "2024-05-01", Tags: s.Form.Tags}))
	require.NoError(t, f.ctrl.StageImages("two"))
	require.NoError(t, f.ctrl.RemoveImage(ctx, 0))

	edited, err := f.ctrl.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgUpdated, f.notes.last())
	assert.Equal(t, original.ID, edited.ID)
	assert.Equal(t, original.CreatedAt, edited.CreatedAt)
	assert.Equal(t, "B", edited.ShopName)
	assert.Equal(t, []string{"two"}, edited.Images)

	assert.Equal(t, ModeDetail, f.ctrl.State().Mode)
	detail, ok := f.ctrl.Detail()
	require.True(t, ok)
	assert.Equal(t, "B", detail.ShopName)
}

func TestStateIsACopy(t *testing.T) {
	f := setupController(t)
	require.NoError(t, f.ctrl.AddNew())
	require.NoError(t, f.ctrl.StageImages("one"))

	s := f.ctrl.State()
	s.Form.Images[0] = "changed"
	assert.Equal(t, []string{"one"}, f.ctrl.State().Form.Images)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("declined keeps the form", func(t *testing.T) {
		f := setupController(t)
		require.NoError(t, f.ctrl.AddNew())
		require.NoError(t, f.ctrl.SetFields(Fields{ShopName: "draft"}))

		f.confirm.replies = []bool{false}
		assert.ErrorIs(t, f.ctrl.Cancel(ctx), types.ErrDeclined)
		assert.Equal(t, ModeForm, f.ctrl.State().Mode)
		assert.Equal(t, "draft", f.ctrl.State().Form.ShopName)
	})

	t.Run("create returns to list", func(t *testing.T) {
		f := setupController(t)
		require.NoError(t, f.ctrl.AddNew())
		require.NoError(t, f.ctrl.Cancel(ctx))
		assert.Equal(t, ModeList, f.ctrl.State().Mode)
		assert.Len(t, f.confirm.prompts, 1)
	})

	t.Run("edit returns to detail unchanged", func(t *testing.T) {
		f := setupController(t)
		rec := createVia(t, f.ctrl, "A")
		require.NoError(t, f.ctrl.Select(ctx, rec.ID))
		require.NoError(t, f.ctrl.Edit(ctx))
		require.NoError(t, f.ctrl.SetFields(Fields{ShopName: "changed", VisitDate: "2024-05-01"}))

		require.NoError(t, f.ctrl.Cancel(ctx))
		assert.Equal(t, ModeDetail, f.ctrl.State().Mode)
		detail, ok := f.ctrl.Detail()
		require.True(t, ok)
		assert.Equal(t, "A", detail.ShopName)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("declined", func(t *testing.T) {
		f := setupController(t)
		rec := createVia(t, f.ctrl, "A")
		require.NoError(t, f.ctrl.Select(ctx, rec.ID))

		f.confirm.replies = []bool{false}
		assert.ErrorIs(t, f.ctrl.Delete(ctx), types.ErrDeclined)
		assert.Equal(t, ModeDetail, f.ctrl.State().Mode)
		assert.Len(t, f.ctrl.List(), 1)
	})

	t.Run("accepted", func(t *testing.T) {
		f := setupController(t)
		rec := createVia(t, f.ctrl, "A")
		require.NoError(t, f.ctrl.Select(ctx, rec.ID))

		require.NoError(t, f.ctrl.Delete(ctx))
		assert.Equal(t, MsgDeleted, f.notes.last())
		assert.Equal(t, ModeList, f.ctrl.State().Mode)
		assert.Zero(t, f.ctrl.State().CurrentID)
		assert.Empty(t, f.ctrl.List())
	})

	t.Run("already gone", func(t *testing.T) {
		f := setupController(t)
		rec := createVia(t, f.ctrl, "A")
		require.NoError(t, f.ctrl.Select(ctx, rec.ID))
		require.NoError(t, f.repo.DeleteOne(ctx, rec.ID))

		assert.ErrorIs(t, f.ctrl.Delete(ctx), types.ErrNotFound)
		assert.Equal(t, MsgNotFound, f.notes.last())
		assert.Equal(t, ModeList, f.ctrl.State().Mode)
		assert.Empty(t, f.ctrl.List())
	})
}

func TestInvalidState(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)

	assert.ErrorIs(t, f.ctrl.Edit(ctx), types.ErrInvalidState)
	assert.ErrorIs(t, f.ctrl.Back(), types.ErrInvalidState)
	assert.ErrorIs(t, f.ctrl.Delete(ctx), types.ErrInvalidState)
	assert.ErrorIs(t, f.ctrl.Cancel(ctx), types.ErrInvalidState)
	assert.ErrorIs(t, f.ctrl.SetRating(3), types.ErrInvalidState)
	assert.ErrorIs(t, f.ctrl.StageImages("x"), types.ErrInvalidState)
	_, err := f.ctrl.Submit(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidState)

	require.NoError(t, f.ctrl.AddNew())
	assert.ErrorIs(t, f.ctrl.AddNew(), types.ErrInvalidState)
	assert.ErrorIs(t, f.ctrl.Select(ctx, 1), types.ErrInvalidState)
}

func TestStagingBounds(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)
	require.NoError(t, f.ctrl.AddNew())

	assert.ErrorIs(t, f.ctrl.SetRating(6), types.ErrValidation)
	assert.ErrorIs(t, f.ctrl.SetRating(-1), types.ErrValidation)
	require.NoError(t, f.ctrl.SetRating(5))
	require.NoError(t, f.ctrl.SetRating(0))
	assert.Zero(t, f.ctrl.State().Form.Rating)

	assert.ErrorIs(t, f.ctrl.RemoveImage(ctx, 0), types.ErrValidation)
	require.NoError(t, f.ctrl.StageImages("a", "b"))
	f.confirm.replies = []bool{false}
	assert.ErrorIs(t, f.ctrl.RemoveImage(ctx, 1), types.ErrDeclined)
	assert.Equal(t, []string{"a", "b"}, f.ctrl.State().Form.Images)
}

func TestListControls(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)
	createVia(t, f.ctrl, "Cafe Luna")
	createVia(t, f.ctrl, "Ramen Taro")

	require.NoError(t, f.ctrl.Search(ctx, "luna"))
	require.Len(t, f.ctrl.List(), 1)

	require.NoError(t, f.ctrl.Search(ctx, ""))
	require.NoError(t, f.ctrl.SortBy(ctx, types.SortName))
	list := f.ctrl.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Cafe Luna", list[0].ShopName)

	assert.ErrorIs(t, f.ctrl.SortBy(ctx, "price"), types.ErrInvalidSortKey)
	assert.Equal(t, types.SortName, f.ctrl.State().Sort)

	require.NoError(t, f.ctrl.ShowFavoritesOnly(ctx, true))
	assert.Empty(t, f.ctrl.List())
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	f := setupController(t)
	createVia(t, f.ctrl, "A")
	createVia(t, f.ctrl, "B")

	var buf bytes.Buffer
	res, err := f.ctrl.Export(ctx, &buf, exchange.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	f.confirm.replies = []bool{false}
	_, err = f.ctrl.Import(ctx, bytes.NewReader(buf.Bytes()), exchange.Options{})
	assert.ErrorIs(t, err, types.ErrDeclined)
	assert.Len(t, f.ctrl.List(), 2)

	outcome, err := f.ctrl.Import(ctx, bytes.NewReader(buf.Bytes()), exchange.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Imported)
	assert.Equal(t, "Imported 2 records.", f.notes.last())
	assert.Len(t, f.ctrl.List(), 4, "list refreshed after import")

	_, err = f.ctrl.Import(ctx, bytes.NewReader([]byte("{oops")), exchange.Options{})
	assert.ErrorIs(t, err, types.ErrParse)
	assert.Contains(t, f.notes.last(), "Import failed")
}
