package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/username/day-planner/internal/config"
	"github.com/username/day-planner/internal/schedule"
	"go.uber.org/zap"
)

// Store persists whole owner snapshots
type Store interface {
	// Load returns the state of owner, or a *schedule.NotFoundError
	Load(ctx context.Context, owner string) (*schedule.State, error)
	// Save replaces the owner's state atomically
	Save(ctx context.Context, state *schedule.State) error
	// Owners lists every owner with a saved state
	Owners(ctx context.Context) ([]string, error)
	Close() error
}

var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

// ValidateOwner rejects owner ids that cannot be used as file or row keys
func ValidateOwner(owner string) error {
	if !ownerPattern.MatchString(owner) {
		return &schedule.ValidationError{Field: "owner", Reason: fmt.Sprintf("%q must be 1-128 letters, digits, '.', '_', '@' or '-'", owner)}
	}
	return nil
}

// Open creates the store selected by cfg.Driver
func Open(cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverFile, "":
		s, err = NewFileStore(cfg.Path, logger)
	case config.DriverSQLite:
		s, err = OpenSQLite(cfg.DSN, logger)
	case config.DriverPostgres:
		s, err = OpenPostgres(cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func notFound(owner string) error {
	return &schedule.NotFoundError{Kind: "owner", Key: owner}
}
