package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/username/day-planner/internal/holidays"
	"go.uber.org/zap"
)

// Refresher recomputes memoized statistics
type Refresher interface {
	InvalidateAll()
	WarmYear(ctx context.Context, year int) (int, error)
}

// HolidaySink persists holidays so later processes can read them
type HolidaySink interface {
	ImportHolidays(ctx context.Context, list []holidays.Holiday) (int, error)
}

// RegionLister reports the regions whose holidays are in use
type RegionLister interface {
	Regions(ctx context.Context) ([]string, error)
}

// Daemon refreshes holiday caches and year statistics once a day and, with a
// sink attached, stores the holidays of the current and the next year
type Daemon struct {
	refresher   Refresher
	holidays    holidays.Provider
	sink        HolidaySink
	regions     RegionLister
	dailyHour   int // Hour to run the refresh (0-23)
	dailyMinute int // Minute to run the refresh (0-59)
	location    *time.Location
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	cron        *cron.Cron
	now         func() time.Time

	mu             sync.Mutex
	refreshRunning bool
	lastRunDate    string
	lastRunTime    time.Time
	lastOwners     int
	lastHolidays   int
}

// NewScheduledDaemon creates a daemon that refreshes daily at hour:minute in loc
func NewScheduledDaemon(refresher Refresher, provider holidays.Provider, dailyHour, dailyMinute int, loc *time.Location, logger *zap.Logger) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	if loc == nil {
		loc = time.UTC
	}

	return &Daemon{
		refresher:   refresher,
		holidays:    provider,
		dailyHour:   dailyHour,
		dailyMinute: dailyMinute,
		location:    loc,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		cron:        cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		now:         time.Now,
	}
}

// SetHolidaySink makes every refresh write the holidays of the regions
// returned by regions into sink
func (d *Daemon) SetHolidaySink(sink HolidaySink, regions RegionLister) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
	d.regions = regions
}

// Start runs an initial refresh, schedules the daily one and blocks until
// Stop is called or SIGINT/SIGTERM arrives
func (d *Daemon) Start() error {
	if _, err := d.cron.AddFunc(dailySpec(d.dailyHour, d.dailyMinute), d.scheduledRefresh); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	d.logger.Info("Daemon started",
		zap.Int("daily_hour", d.dailyHour),
		zap.Int("daily_minute", d.dailyMinute),
		zap.String("timezone", d.location.String()))

	if err := d.RunOnce(d.ctx); err != nil {
		d.logger.Error("Initial refresh failed", zap.Error(err))
	}

	d.cron.Start()
	defer func() {
		<-d.cron.Stop().Done()
	}()

	d.logger.Info("Next refresh scheduled",
		zap.Time("next_run", d.calculateNextRun(d.now())))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-d.ctx.Done():
		d.logger.Info("Daemon stopped")
	case sig := <-sigChan:
		d.logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		d.Stop()
	}
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) scheduledRefresh() {
	d.logger.Info("Starting scheduled refresh")
	if err := d.RunOnce(d.ctx); err != nil {
		d.logger.Error("Scheduled refresh failed", zap.Error(err))
		return
	}
	d.logger.Info("Next refresh scheduled",
		zap.Time("next_run", d.calculateNextRun(d.now())))
}

// RunOnce clears holiday caches, stores upcoming holidays when a sink is
// attached and recomputes the current year's statistics for every owner.
// Concurrent calls are rejected.
func (d *Daemon) RunOnce(ctx context.Context) error {
	d.mu.Lock()
	if d.refreshRunning {
		d.mu.Unlock()
		d.logger.Warn("Refresh already running, skipping concurrent execution")
		return fmt.Errorf("refresh already in progress")
	}
	d.refreshRunning = true
	sink, regions := d.sink, d.regions
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.refreshRunning = false
		d.mu.Unlock()
	}()

	now := d.now().In(d.location)

	if clearer, ok := d.holidays.(holidays.Clearer); ok {
		clearer.ClearCache()
		d.logger.Debug("Holiday caches cleared")
	}

	stored := 0
	if sink != nil && regions != nil {
		var err error
		stored, err = d.persistHolidays(ctx, sink, regions, now.Year())
		if err != nil {
			return err
		}
	}
	d.refresher.InvalidateAll()

	owners, err := d.refresher.WarmYear(ctx, now.Year())
	if err != nil {
		return fmt.Errorf("failed to refresh statistics: %w", err)
	}

	d.mu.Lock()
	d.lastRunDate = now.Format("2006-01-02")
	d.lastRunTime = now
	d.lastOwners = owners
	d.lastHolidays = stored
	d.mu.Unlock()

	d.logger.Info("Refresh completed",
		zap.Int("year", now.Year()),
		zap.Int("owners", owners),
		zap.Int("holidays_stored", stored))

	return nil
}

// persistHolidays fetches the holidays of year and year+1 for every region in
// use and writes them to sink. Regions without holiday data are skipped; a
// failing region is logged and does not stop the others.
func (d *Daemon) persistHolidays(ctx context.Context, sink HolidaySink, lister RegionLister, year int) (int, error) {
	regions, err := lister.Regions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list regions: %w", err)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year+1, time.December, 31, 0, 0, 0, 0, time.UTC)

	stored := 0
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		list, err := d.holidays.Range(region, from, to)
		switch {
		case errors.Is(err, holidays.ErrUnsupportedRegion):
			d.logger.Debug("No holiday data for region", zap.String("region", region))
			continue
		case err != nil:
			d.logger.Warn("Failed to fetch holidays",
				zap.String("region", region),
				zap.Int("year", year),
				zap.Error(err))
			continue
		}

		n, err := sink.ImportHolidays(ctx, list)
		if err != nil {
			return stored, fmt.Errorf("failed to store holidays of %s: %w", region, err)
		}
		stored += n
		d.logger.Debug("Holidays stored",
			zap.String("region", region),
			zap.Int("from_year", year),
			zap.Int("to_year", year+1),
			zap.Int("count", n))
	}
	return stored, nil
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	return map[string]interface{}{
		"running":       d.ctx.Err() == nil,
		"refreshing":    d.refreshRunning,
		"last_run_date": d.lastRunDate,
		"last_run_time": d.lastRunTime,
		"last_owners":   d.lastOwners,
		"last_holidays": d.lastHolidays,
		"next_run":      d.calculateNextRun(d.now()),
	}
}

// calculateNextRun calculates the next scheduled run time in the daemon timezone
func (d *Daemon) calculateNextRun(now time.Time) time.Time {
	now = now.In(d.location)

	today := time.Date(now.Year(), now.Month(), now.Day(),
		d.dailyHour, d.dailyMinute, 0, 0, d.location)

	// If target time already passed today, schedule for tomorrow
	if !now.Before(today) {
		return today.AddDate(0, 0, 1)
	}
	return today
}

// dailySpec builds a seconds-enabled cron spec: second minute hour dom month dow
func dailySpec(hour, minute int) string {
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}
