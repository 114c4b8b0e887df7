package cli

import (
	"context"

	"github.com/mesh-intelligence/gourmet/internal/exchange"
	"github.com/mesh-intelligence/gourmet/internal/record"
	"github.com/mesh-intelligence/gourmet/internal/sqlite"
)

// session wires the store, repository and backup service for one command.
type session struct {
	store    *sqlite.Store
	records  *record.Repository
	exchange *exchange.Service
}

// openSession opens the record store in the configured data directory. The
// caller must Close it.
func (a *app) openSession(ctx context.Context) (*session, error) {
	store, err := sqlite.Open(ctx, sqlite.Options{
		DataDir: a.settings.DataDir,
		Logger:  a.log,
	})
	if err != nil {
		return nil, err
	}
	repo := record.NewRepository(store,
		record.WithLocale(a.settings.locale),
		record.WithLogger(a.log),
	)
	return &session{
		store:    store,
		records:  repo,
		exchange: exchange.NewService(repo, store, exchange.WithLogger(a.log)),
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}
