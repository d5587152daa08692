package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/username/day-planner/internal/holidays"
	"github.com/username/day-planner/internal/planner"
	"github.com/username/day-planner/internal/resolver"
	"github.com/username/day-planner/internal/store"
	"go.uber.org/zap"
)

type countingProvider struct {
	holidays.Provider
	mu      sync.Mutex
	cleared int
}

func (p *countingProvider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
}

type fakeRefresher struct {
	mu          sync.Mutex
	invalidated int
	years       []int
	err         error
	block       chan struct{}
}

func (f *fakeRefresher) InvalidateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeRefresher) WarmYear(ctx context.Context, year int) (int, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.years = append(f.years, year)
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDailySpec(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{3, 0, "0 0 3 * * *"},
		{23, 45, "0 45 23 * * *"},
		{0, 5, "0 5 0 * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := dailySpec(tt.hour, tt.minute); got != tt.want {
				t.Errorf("dailySpec(%d, %d) = %q, want %q", tt.hour, tt.minute, got, tt.want)
			}
		})
	}
}

func TestCalculateNextRun(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	d := NewScheduledDaemon(&fakeRefresher{}, holidays.NewBuiltin(), 3, 30, loc, zap.NewNop())

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before target today",
			now:  time.Date(2026, 6, 1, 1, 0, 0, 0, loc),
			want: time.Date(2026, 6, 1, 3, 30, 0, 0, loc),
		},
		{
			name: "exactly at target",
			now:  time.Date(2026, 6, 1, 3, 30, 0, 0, loc),
			want: time.Date(2026, 6, 2, 3, 30, 0, 0, loc),
		},
		{
			name: "after target",
			now:  time.Date(2026, 12, 31, 22, 0, 0, 0, loc),
			want: time.Date(2027, 1, 1, 3, 30, 0, 0, loc),
		},
		{
			name: "now given in UTC",
			now:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 6, 1, 3, 30, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.calculateNextRun(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("calculateNextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestRunOnce(t *testing.T) {
	provider := &countingProvider{Provider: holidays.NewBuiltin()}
	refresher := &fakeRefresher{}
	d := NewScheduledDaemon(refresher, provider, 3, 0, time.UTC, zap.NewNop())
	d.now = fixedNow(time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC))

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if provider.cleared != 1 {
		t.Errorf("holiday cache cleared %d times, want 1", provider.cleared)
	}
	if refresher.invalidated != 1 {
		t.Errorf("InvalidateAll called %d times, want 1", refresher.invalidated)
	}
	if len(refresher.years) != 1 || refresher.years[0] != 2026 {
		t.Errorf("WarmYear years = %v, want [2026]", refresher.years)
	}

	status := d.GetStatus()
	if status["last_run_date"] != "2026-12-31" {
		t.Errorf("last_run_date = %v, want 2026-12-31", status["last_run_date"])
	}
	if status["last_owners"] != 2 {
		t.Errorf("last_owners = %v, want 2", status["last_owners"])
	}
	if status["refreshing"] != false {
		t.Errorf("refreshing = %v, want false", status["refreshing"])
	}
}

func TestRunOnceUsesDaemonTimezone(t *testing.T) {
	refresher := &fakeRefresher{}
	loc := time.FixedZone("UTC+5", 5*3600)
	d := NewScheduledDaemon(refresher, holidays.NewBuiltin(), 3, 0, loc, zap.NewNop())
	// 2026-12-31 21:00 UTC is already 2027 in UTC+5
	d.now = fixedNow(time.Date(2026, 12, 31, 21, 0, 0, 0, time.UTC))

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(refresher.years) != 1 || refresher.years[0] != 2027 {
		t.Errorf("WarmYear years = %v, want [2027]", refresher.years)
	}
}

func TestRunOnceError(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("store down")}
	d := NewScheduledDaemon(refresher, holidays.NewBuiltin(), 3, 0, time.UTC, zap.NewNop())

	if err := d.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() expected error")
	}
	if status := d.GetStatus(); status["last_run_date"] != "" {
		t.Errorf("last_run_date = %v, want empty after failure", status["last_run_date"])
	}
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	refresher := &fakeRefresher{block: make(chan struct{})}
	d := NewScheduledDaemon(refresher, holidays.NewBuiltin(), 3, 0, time.UTC, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- d.RunOnce(context.Background())
	}()

	// Wait for the first run to take the flag
	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		running := d.refreshRunning
		d.mu.Unlock()
		if running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first refresh never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := d.RunOnce(context.Background()); err == nil {
		t.Error("second RunOnce() expected error while first is running")
	}

	close(refresher.block)
	if err := <-done; err != nil {
		t.Fatalf("first RunOnce() error = %v", err)
	}
}

func TestStartAndStop(t *testing.T) {
	refresher := &fakeRefresher{}
	d := NewScheduledDaemon(refresher, holidays.NewBuiltin(), 3, 0, time.UTC, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- d.Start()
	}()

	time.Sleep(50 * time.Millisecond)
	d.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	if len(refresher.years) != 1 {
		t.Errorf("initial refresh ran %d times, want 1", len(refresher.years))
	}
	if status := d.GetStatus(); status["running"] != false {
		t.Errorf("running = %v, want false", status["running"])
	}
}

func TestRunOnceWithPlanner(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewFileStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	svc := planner.NewService(st, resolver.New(holidays.NewBuiltin(), zap.NewNop()), zap.NewNop())
	for _, owner := range []string{"alice", "bob"} {
		if _, err := svc.Seed(ctx, owner); err != nil {
			t.Fatalf("Seed(%s) error = %v", owner, err)
		}
	}

	d := NewScheduledDaemon(svc, holidays.NewBuiltin(), 3, 0, time.UTC, zap.NewNop())
	if err := d.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if status := d.GetStatus(); status["last_owners"] != 2 {
		t.Errorf("last_owners = %v, want 2", status["last_owners"])
	}
}

type fakeRegions []string

func (f fakeRegions) Regions(ctx context.Context) ([]string, error) {
	return f, nil
}

type fakeSink struct {
	stored []holidays.Holiday
	err    error
}

func (f *fakeSink) ImportHolidays(ctx context.Context, list []holidays.Holiday) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.stored = append(f.stored, list...)
	return len(list), nil
}

func TestRunOnceStoresUpcomingHolidays(t *testing.T) {
	sink := &fakeSink{}
	d := NewScheduledDaemon(&fakeRefresher{}, holidays.NewBuiltin(), 3, 0, time.UTC, zap.NewNop())
	d.SetHolidaySink(sink, fakeRegions{"DE-NW", "FR"})
	d.now = fixedNow(time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC))

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	years := map[int]int{}
	for _, h := range sink.stored {
		if h.Region != "DE-NW" {
			t.Errorf("stored holiday for region %q, want only DE-NW", h.Region)
		}
		years[h.Date.Year()]++
	}
	if years[2026] != 11 || years[2027] != 11 {
		t.Errorf("stored holidays per year = %v, want 11 in 2026 and 2027", years)
	}
	if status := d.GetStatus(); status["last_holidays"] != len(sink.stored) {
		t.Errorf("last_holidays = %v, want %d", status["last_holidays"], len(sink.stored))
	}
}

func TestRunOnceSinkError(t *testing.T) {
	refresher := &fakeRefresher{}
	d := NewScheduledDaemon(refresher, holidays.NewBuiltin(), 3, 0, time.UTC, zap.NewNop())
	d.SetHolidaySink(&fakeSink{err: errors.New("disk full")}, fakeRegions{"DE"})

	if err := d.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() expected error when holidays cannot be stored")
	}
	if len(refresher.years) != 0 {
		t.Errorf("statistics refreshed %v despite the failed holiday import", refresher.years)
	}
}

func TestRunOncePersistsHolidaysAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "planner.db")
	gs, err := store.OpenSQLite(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}

	svc := planner.NewService(gs, resolver.New(holidays.NewBuiltin(), zap.NewNop()), zap.NewNop())
	region := "de-nw"
	if _, err := svc.Seed(ctx, "alice"); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if _, err := svc.UpdateSettings(ctx, "alice", planner.SettingsPatch{Region: &region}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	d := NewScheduledDaemon(svc, holidays.NewBuiltin(), 3, 0, time.UTC, zap.NewNop())
	d.SetHolidaySink(gs, svc)
	d.now = fixedNow(time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC))
	if err := d.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if err := gs.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A later process reading the database sees next year's holidays
	reopened, err := store.OpenSQLite(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer reopened.Close()

	h, err := reopened.Lookup("DE-NW", time.Date(2027, 12, 25, 0, 0, 0, 0, time.UTC))
	if err != nil || h == nil {
		t.Fatalf("Lookup(2027-12-25) = %v, %v; want stored holiday", h, err)
	}
	list, err := reopened.Range("DE-NW", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(list) != 22 {
		t.Errorf("Range(2026..2027) = %d holidays, want 22", len(list))
	}

	dbSvc := planner.NewService(reopened, resolver.New(reopened, zap.NewNop()), zap.NewNop())
	stats, err := dbSvc.Year(ctx, "alice", 2027)
	if err != nil {
		t.Fatalf("Year(2027) error = %v", err)
	}
	if stats.Holidays != 11 {
		t.Errorf("Year(2027) holidays from database = %v, want 11", stats.Holidays)
	}
}
