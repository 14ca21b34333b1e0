package cmdutil

import (
	"fmt"

	"github.com/uptrace/bun"

	"github.com/voip8pbx/ShieldHire-sub000/internal/config"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
)

// Store bundles the repositories with their DB connection so commands can
// share one connection and close it once.
type Store struct {
	DB         *bun.DB
	Principals repository.PrincipalRepository
	Profiles   repository.ProfileRepository
	Alerts     repository.AlertRepository
}

// Close releases the underlying database connection.
func (s *Store) Close() {
	if s == nil || s.DB == nil {
		return
	}
	_ = bunx.Close(s.DB)
}

// OpenStore connects to the configured database and wires the repositories.
func OpenStore(cfg *config.Config) (*Store, error) {
	db, err := bunx.NewDBWithOptions(cfg.DatabaseURL, bunx.Options{
		MaxOpenConns: cfg.MaxDBConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{
		DB:         db,
		Principals: repository.NewBunPrincipalRepository(db),
		Profiles:   repository.NewBunProfileRepository(db),
		Alerts:     repository.NewBunAlertRepository(db),
	}, nil
}
