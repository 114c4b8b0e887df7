// Package record provides typed record operations over a types.Store:
// listing with search, favorites filter and sort, fetch, upsert and delete.
// Stored bodies are normalized into the current Record shape on every read.
package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// Repository reads and writes records through a Store.
type Repository struct {
	store  types.Store
	now    func() time.Time
	locale language.Tag
	log    zerolog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithLocale sets the collation locale for the name sort.
func WithLocale(tag language.Tag) Option {
	return func(r *Repository) { r.locale = tag }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Repository) { r.log = log }
}

// NewRepository returns a Repository over store.
func NewRepository(store types.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		now:    time.Now,
		locale: language.Und,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// All returns every readable record in store key order. Bodies that cannot
// be decoded are logged and skipped.
func (r *Repository) All(ctx context.Context) ([]*types.Record, error) {
	docs, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	records := make([]*types.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := Normalize(doc)
		if err != nil {
			r.log.Warn().Err(err).Int64("id", doc.ID).Msg("skipping unreadable record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListAll returns the records passing f, ordered by f.SortKey.
// Returns ErrInvalidSortKey for an unknown key.
func (r *Repository) ListAll(ctx context.Context, f types.ListFilter) ([]*types.Record, error) {
	if !f.SortKey.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidSortKey, f.SortKey)
	}
	records, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	records = filterRecords(records, f)
	sortRecords(records, f.SortKey, r.locale)
	return records, nil
}

// GetOne returns the record with the given id.
// Returns ErrNotFound if it does not exist.
func (r *Repository) GetOne(ctx context.Context, id int64) (*types.Record, error) {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Normalize(doc)
}

// Upsert validates d and persists it. On edit the record d.ID must exist;
// its id and createdAt are kept and every other field is replaced by the
// draft, images and tags included. On create createdAt is set to now and
// the store assigns the id. Returns the record as stored.
func (r *Repository) Upsert(ctx context.Context, d types.Draft, isEdit bool) (*types.Record, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}

	rec := &types.Record{
		ShopName:  d.ShopName,
		VisitDate: d.VisitDate,
		Comment:   d.Comment,
		Images:    append([]string(nil), d.Images...),
		Rating:    d.Rating,
		Favorite:  d.Favorite,
		Tags:      append([]string(nil), d.Tags...),
	}

	if isEdit {
		existing, err := r.GetOne(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("editing record %d: %w", d.ID, err)
		}
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt

		body, err := encodeBody(rec)
		if err != nil {
			return nil, err
		}
		if _, err := r.store.Put(ctx, rec.ID, body); err != nil {
			return nil, fmt.Errorf("updating record %d: %w", rec.ID, err)
		}
		r.log.Debug().Int64("id", rec.ID).Msg("record updated")
	} else {
		rec.CreatedAt = r.now().UnixMilli()

		body, err := encodeBody(rec)
		if err != nil {
			return nil, err
		}
		id, err := r.store.Add(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("creating record: %w", err)
		}
		rec.ID = id
		r.log.Debug().Int64("id", rec.ID).Msg("record created")
	}

	return r.GetOne(ctx, rec.ID)
}

// DeleteOne removes the record with the given id.
// Returns ErrNotFound if it does not exist.
func (r *Repository) DeleteOne(ctx context.Context, id int64) error {
	if err := r.store.Delete(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	r.log.Debug().Int64("id", id).Msg("record deleted")
	return nil
}
