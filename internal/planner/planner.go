package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/username/day-planner/internal/holidays"
	"github.com/username/day-planner/internal/resolver"
	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/internal/store"
	"github.com/username/day-planner/internal/transfer"
	"go.uber.org/zap"
)

// errUnchanged lets a mutation finish without writing
var errUnchanged = errors.New("unchanged")

type yearKey struct {
	owner string
	year  int
}

// Service is the entry point for every read and write of owner state. Writes
// load the owner's snapshot, change a clone, validate it and save it whole.
type Service struct {
	store    store.Store
	resolver *resolver.Resolver
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.RWMutex
	years map[yearKey]*resolver.YearStatistics
	// generation counters; a computed statistic is only stored when neither
	// moved while it was being computed
	epoch       uint64
	generations map[string]uint64
}

type generation struct {
	epoch uint64
	owner uint64
}

// NewService creates a planner service
func NewService(st store.Store, res *resolver.Resolver, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		resolver: res,
		logger:   logger,
		now:      time.Now,
		years:    make(map[yearKey]*resolver.YearStatistics),

		generations: make(map[string]uint64),
	}
}

// State returns the owner's current snapshot
func (s *Service) State(ctx context.Context, owner string) (*schedule.State, error) {
	state, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load state of %s: %w", owner, err)
	}
	return state, nil
}

// Owners lists every owner known to the store
func (s *Service) Owners(ctx context.Context) ([]string, error) {
	return s.store.Owners(ctx)
}

// Regions lists the distinct holiday regions configured by any owner
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var regions []string
	for _, owner := range owners {
		state, err := s.store.Load(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to load state of %s: %w", owner, err)
		}
		region := holidays.NormalizeRegion(state.Settings.Region)
		if region == "" || seen[region] {
			continue
		}
		seen[region] = true
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions, nil
}

// mutate runs fn against a clone of the owner's state and saves the result
// only when fn succeeds and the clone passes the integrity check
func (s *Service) mutate(ctx context.Context, owner, op string, fn func(*schedule.State) error) (*schedule.State, error) {
	current, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, errUnchanged) {
			return current, nil
		}
		return nil, err
	}
	if err := next.Check(); err != nil {
		return nil, err
	}

	next.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save state of %s: %w", owner, err)
	}
	s.invalidate(owner)

	s.logger.Info("State updated",
		zap.String("owner", owner),
		zap.String("operation", op))

	return next, nil
}

// Seed creates the owner if needed and adds missing baseline day types.
// Running it again is a no-op.
func (s *Service) Seed(ctx context.Context, owner string) (int, error) {
	if err := store.ValidateOwner(owner); err != nil {
		return 0, err
	}

	state, err := s.store.Load(ctx, owner)
	created := false
	switch {
	case schedule.IsNotFound(err):
		state = schedule.NewState(owner)
		state.Settings.DefaultView = "week"
		created = true
	case err != nil:
		return 0, fmt.Errorf("failed to load state of %s: %w", owner, err)
	}

	added := state.Seed()
	if added == 0 && !created {
		s.logger.Debug("Seed skipped, baselines present", zap.String("owner", owner))
		return 0, nil
	}

	if err := state.Check(); err != nil {
		return 0, err
	}

	state.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, state); err != nil {
		return 0, fmt.Errorf("failed to save state of %s: %w", owner, err)
	}
	s.invalidate(owner)

	s.logger.Info("Owner seeded",
		zap.String("owner", owner),
		zap.Bool("created", created),
		zap.Int("day_types_added", added))

	return added, nil
}

// SettingsPatch holds the settings fields to change; nil fields are kept
type SettingsPatch struct {
	Region      *string
	WeekStart   *int
	DefaultView *string
	Onboarded   *bool
}

// UpdateSettings applies patch to the owner's settings
func (s *Service) UpdateSettings(ctx context.Context, owner string, patch SettingsPatch) (schedule.Settings, error) {
	state, err := s.mutate(ctx, owner, "update settings", func(st *schedule.State) error {
		next := st.Settings
		if patch.Region != nil {
			next.Region = holidays.NormalizeRegion(*patch.Region)
		}
		if patch.WeekStart != nil {
			next.WeekStart = *patch.WeekStart
		}
		if patch.DefaultView != nil {
			next.DefaultView = *patch.DefaultView
		}
		if patch.Onboarded != nil {
			next.Onboarded = *patch.Onboarded
		}
		if err := schedule.ValidateSettings(next); err != nil {
			return err
		}
		st.Settings = next
		return nil
	})
	if err != nil {
		return schedule.Settings{}, err
	}
	return state.Settings, nil
}

// Export returns the owner's state as a portable document
func (s *Service) Export(ctx context.Context, owner string) (*transfer.Document, error) {
	state, err := s.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	return transfer.FromState(state, s.now()), nil
}

// Import replaces the owner's state with doc. The document is validated as a
// whole first; on any problem nothing is written.
func (s *Service) Import(ctx context.Context, owner string, doc *transfer.Document) (*schedule.State, error) {
	state, err := doc.ToState(owner)
	if err != nil {
		return nil, err
	}
	if err := store.ValidateOwner(state.Owner); err != nil {
		return nil, err
	}

	state.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save imported state of %s: %w", state.Owner, err)
	}
	s.invalidate(state.Owner)

	s.logger.Info("State imported",
		zap.String("owner", state.Owner),
		zap.Int("day_types", len(state.DayTypes)),
		zap.Int("overrides", len(state.Overrides)))

	return state, nil
}

func (s *Service) invalidate(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[owner]++
	for key := range s.years {
		if key.owner == owner {
			delete(s.years, key)
		}
	}
}

// InvalidateAll drops every memoized statistic, e.g. after holiday data changed
func (s *Service) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.years = make(map[yearKey]*resolver.YearStatistics)
}

// generationOf must be called with mu held
func (s *Service) generationOf(owner string) generation {
	return generation{epoch: s.epoch, owner: s.generations[owner]}
}
