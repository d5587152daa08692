package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/username/day-planner/internal/holidays"
	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore keeps owner state in SQL tables, one transaction per save. It also
// serves the public_holidays table as a holiday provider.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenSQLite opens (or creates) a SQLite database and runs migrations
func OpenSQLite(dsn string, logger *zap.Logger) (*GormStore, error) {
	if dsn == "" {
		dsn = "dayplanner.db"
	}
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}
	return NewGormStore(sqlite.Open(dsn), logger)
}

// OpenPostgres connects to PostgreSQL and runs migrations
func OpenPostgres(dsn string, logger *zap.Logger) (*GormStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	return NewGormStore(postgres.Open(dsn), logger)
}

// NewGormStore opens the database behind dialector and migrates the schema
func NewGormStore(dialector gorm.Dialector, logger *zap.Logger) (*GormStore, error) {
	dbLogger := gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	logger.Info("Database ready", zap.String("dialect", dialector.Name()))

	return &GormStore{db: db, logger: logger}, nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// Load assembles the owner's state from its rows
func (s *GormStore) Load(ctx context.Context, owner string) (*schedule.State, error) {
	db := s.db.WithContext(ctx)

	var head ownerRow
	err := db.Where("owner = ?", owner).First(&head).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, notFound(owner)
	case err != nil:
		return nil, fmt.Errorf("find owner: %w", err)
	}

	var (
		categories []categoryRow
		dayTypes   []dayTypeRow
		templates  []templateRow
		weekdays   []weekdayRow
		blocks     []blockRow
		overrides  []overrideRow
	)
	queries := []struct {
		what  string
		order string
		dest  any
	}{
		{"categories", "name ASC", &categories},
		{"day types", "position ASC", &dayTypes},
		{"templates", "day_type_id ASC", &templates},
		{"weekday configs", "weekday ASC", &weekdays},
		{"blocks", "start_minute ASC, sort_order ASC", &blocks},
		{"overrides", "date ASC, period ASC", &overrides},
	}
	for _, q := range queries {
		if err := db.Where("owner = ?", owner).Order(q.order).Find(q.dest).Error; err != nil {
			return nil, fmt.Errorf("load %s: %w", q.what, err)
		}
	}

	state := schedule.NewState(owner)
	state.UpdatedAt = head.UpdatedAt
	state.Settings = schedule.Settings{
		Region:      head.Region,
		WeekStart:   head.WeekStart,
		DefaultView: head.DefaultView,
		Onboarded:   head.Onboarded,
	}

	for _, c := range categories {
		state.Categories = append(state.Categories, schedule.Category{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	for _, dt := range dayTypes {
		state.DayTypes = append(state.DayTypes, schedule.DayType{
			ID: dt.ID, Key: dt.Key, Name: dt.Name, Kind: schedule.Kind(dt.Kind),
			Color: dt.Color, Default: dt.IsDefault,
		})
	}
	for _, t := range templates {
		state.Templates[t.DayTypeID] = &schedule.Template{DayTypeID: t.DayTypeID, Blocks: []schedule.Block{}}
	}
	for _, w := range weekdays {
		state.Weekdays[w.Weekday] = &schedule.WeekdayConfig{
			Weekday: w.Weekday, BaseDayTypeID: w.BaseDayTypeID, HasCustom: w.HasCustom, Blocks: []schedule.Block{},
		}
	}
	for _, b := range blocks {
		switch {
		case b.DayTypeID != nil:
			tpl, ok := state.Templates[*b.DayTypeID]
			if !ok {
				tpl = &schedule.Template{DayTypeID: *b.DayTypeID}
				state.Templates[*b.DayTypeID] = tpl
			}
			tpl.Blocks = append(tpl.Blocks, b.toBlock())
		case b.Weekday != nil:
			cfg, ok := state.Weekdays[*b.Weekday]
			if !ok {
				return nil, fmt.Errorf("block %s references missing weekday config %d", b.ID, *b.Weekday)
			}
			cfg.Blocks = append(cfg.Blocks, b.toBlock())
		default:
			s.logger.Warn("Skipping orphan block", zap.String("owner", owner), zap.String("block", b.ID))
		}
	}
	for _, o := range overrides {
		date, err := dateutil.ParseDate(o.Date)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", o.Date, err)
		}
		state.SetOverride(schedule.Override{
			Date: date, Period: schedule.Period(o.Period), DayTypeID: o.DayTypeID, Note: o.Note,
		})
	}

	return state, nil
}

// Save replaces every row of the owner inside one transaction
func (s *GormStore) Save(ctx context.Context, state *schedule.State) error {
	if err := ValidateOwner(state.Owner); err != nil {
		return err
	}
	rows := rowsFromState(state, time.Now().UTC())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range allModels() {
			if _, ok := model.(*holidayRow); ok {
				continue
			}
			if err := tx.Where("owner = ?", state.Owner).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}

		if err := tx.Create(&rows.owner).Error; err != nil {
			return fmt.Errorf("create owner: %w", err)
		}
		if err := createAll(tx, rows.categories); err != nil {
			return fmt.Errorf("create categories: %w", err)
		}
		if err := createAll(tx, rows.dayTypes); err != nil {
			return fmt.Errorf("create day types: %w", err)
		}
		if err := createAll(tx, rows.templates); err != nil {
			return fmt.Errorf("create templates: %w", err)
		}
		if err := createAll(tx, rows.weekdays); err != nil {
			return fmt.Errorf("create weekday configs: %w", err)
		}
		if err := createAll(tx, rows.blocks); err != nil {
			return fmt.Errorf("create blocks: %w", err)
		}
		if err := createAll(tx, rows.overrides); err != nil {
			return fmt.Errorf("create overrides: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("State saved",
		zap.String("owner", state.Owner),
		zap.Int("blocks", len(rows.blocks)),
		zap.Int("overrides", len(rows.overrides)))

	return nil
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, 200).Error
}

// Owners lists every owner with saved settings
func (s *GormStore) Owners(ctx context.Context) ([]string, error) {
	var owners []string
	if err := s.db.WithContext(ctx).Model(&ownerRow{}).Order("owner ASC").Pluck("owner", &owners).Error; err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

// Close closes the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ImportHolidays upserts holidays into the public_holidays table
func (s *GormStore) ImportHolidays(ctx context.Context, list []holidays.Holiday) (int, error) {
	rows := make([]holidayRow, 0, len(list))
	for _, h := range list {
		rows = append(rows, holidayRow{
			Region: holidays.NormalizeRegion(h.Region),
			Date:   dateutil.Key(h.Date),
			Name:   h.Name,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "region"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).
		CreateInBatches(rows, 200).Error
	if err != nil {
		return 0, fmt.Errorf("import holidays: %w", err)
	}

	s.logger.Info("Holidays imported", zap.Int("count", len(rows)))
	return len(rows), nil
}

// Lookup implements holidays.Provider
func (s *GormStore) Lookup(region string, date time.Time) (*holidays.Holiday, error) {
	var row holidayRow
	err := s.db.Where("region = ? AND date = ?", holidays.NormalizeRegion(region), dateutil.Key(date)).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("find holiday: %w", err)
	}
	h, err := row.toHoliday()
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Range implements holidays.Provider
func (s *GormStore) Range(region string, from, to time.Time) ([]holidays.Holiday, error) {
	var rows []holidayRow
	err := s.db.
		Where("region = ? AND date >= ? AND date <= ?", holidays.NormalizeRegion(region), dateutil.Key(from), dateutil.Key(to)).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}

	out := make([]holidays.Holiday, 0, len(rows))
	for _, row := range rows {
		h, err := row.toHoliday()
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (r holidayRow) toHoliday() (holidays.Holiday, error) {
	date, err := dateutil.ParseDate(r.Date)
	if err != nil {
		return holidays.Holiday{}, fmt.Errorf("holiday %s/%s: %w", r.Region, r.Date, err)
	}
	return holidays.Holiday{Region: r.Region, Date: date, Name: r.Name}, nil
}
