package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
)

// CategoryPatch holds the category fields to change; nil fields are kept
type CategoryPatch struct {
	Name  *string
	Color *string
}

func lookupCategory(state *schedule.State, ref string) (schedule.Category, int, error) {
	for i, c := range state.Categories {
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c, i, nil
		}
	}
	return schedule.Category{}, -1, &schedule.NotFoundError{Kind: "category", Key: ref}
}

// CreateCategory adds a category with a unique name
func (s *Service) CreateCategory(ctx context.Context, owner, name, color string) (schedule.Category, error) {
	c := schedule.Category{ID: schedule.NewID(), Name: strings.TrimSpace(name), Color: color}
	_, err := s.mutate(ctx, owner, "create category", func(st *schedule.State) error {
		if err := st.ValidateCategory(c); err != nil {
			return err
		}
		st.Categories = append(st.Categories, c)
		return nil
	})
	if err != nil {
		return schedule.Category{}, err
	}
	return c, nil
}

// UpdateCategory renames or recolors a category, found by ID or name
func (s *Service) UpdateCategory(ctx context.Context, owner, ref string, patch CategoryPatch) (schedule.Category, error) {
	var updated schedule.Category
	_, err := s.mutate(ctx, owner, "update category", func(st *schedule.State) error {
		c, i, err := lookupCategory(st, ref)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Color != nil {
			c.Color = *patch.Color
		}
		if err := st.ValidateCategory(c); err != nil {
			return err
		}
		st.Categories[i] = c
		updated = c
		return nil
	})
	if err != nil {
		return schedule.Category{}, err
	}
	return updated, nil
}

// DeleteCategory removes a category and clears it from every block that used
// it. It returns how many blocks were detached.
func (s *Service) DeleteCategory(ctx context.Context, owner, ref string) (int, error) {
	detached := 0
	_, err := s.mutate(ctx, owner, "delete category", func(st *schedule.State) error {
		c, i, err := lookupCategory(st, ref)
		if err != nil {
			return err
		}
		st.Categories = append(st.Categories[:i], st.Categories[i+1:]...)

		detach := func(blocks []schedule.Block) {
			for j := range blocks {
				if blocks[j].CategoryID != nil && *blocks[j].CategoryID == c.ID {
					blocks[j].CategoryID = nil
					detached++
				}
			}
		}
		for _, tpl := range st.Templates {
			detach(tpl.Blocks)
		}
		for _, cfg := range st.Weekdays {
			detach(cfg.Blocks)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return detached, nil
}

// DayTypeInput describes a new day type. An empty Key is derived from Name.
type DayTypeInput struct {
	Name    string
	Key     string
	Kind    schedule.Kind
	Color   string
	Default bool
}

// CreateDayType adds a user-defined day type. Marking it Default demotes the
// current default of the same kind.
func (s *Service) CreateDayType(ctx context.Context, owner string, in DayTypeInput) (schedule.DayType, error) {
	dt := schedule.DayType{
		ID:      schedule.NewID(),
		Key:     in.Key,
		Name:    strings.TrimSpace(in.Name),
		Kind:    in.Kind,
		Color:   in.Color,
		Default: in.Default,
	}
	if dt.Key == "" {
		dt.Key = schedule.Slug(dt.Name)
	}

	_, err := s.mutate(ctx, owner, "create day type", func(st *schedule.State) error {
		if dt.Default {
			for i := range st.DayTypes {
				if st.DayTypes[i].Kind == dt.Kind {
					st.DayTypes[i].Default = false
				}
			}
		}
		if err := st.ValidateDayType(dt); err != nil {
			return err
		}
		st.DayTypes = append(st.DayTypes, dt)
		return nil
	})
	if err != nil {
		return schedule.DayType{}, err
	}
	return dt, nil
}

// BlockInput describes a new activity block
type BlockInput struct {
	Name       string
	Start      schedule.Minute
	End        schedule.Minute
	CategoryID *string
	Color      string
}

// BlockPatch holds the block fields to change; nil fields are kept.
// ClearCategory detaches the block from its category.
type BlockPatch struct {
	Name          *string
	Start         *schedule.Minute
	End           *schedule.Minute
	CategoryID    *string
	ClearCategory bool
	Color         *string
}

func newBlock(in BlockInput, existing []schedule.Block) schedule.Block {
	b := schedule.Block{
		ID:        schedule.NewID(),
		Name:      strings.TrimSpace(in.Name),
		Start:     in.Start,
		End:       in.End,
		Color:     in.Color,
		SortOrder: schedule.NextSortOrder(existing),
	}
	if in.CategoryID != nil {
		id := *in.CategoryID
		b.CategoryID = &id
	}
	return b
}

// AddTemplateBlock appends a block to a day type's template, creating the
// template on first use. dayTypeRef is an ID, key or name.
func (s *Service) AddTemplateBlock(ctx context.Context, owner, dayTypeRef string, in BlockInput) (schedule.Block, error) {
	var added schedule.Block
	_, err := s.mutate(ctx, owner, "add template block", func(st *schedule.State) error {
		dt, err := st.LookupDayType(dayTypeRef)
		if err != nil {
			return err
		}
		tpl, err := st.EnsureTemplate(dt.ID)
		if err != nil {
			return err
		}
		b := newBlock(in, tpl.Blocks)
		if err := st.ValidateBlock(b); err != nil {
			return err
		}
		tpl.Blocks = append(tpl.Blocks, b)
		added = b
		return nil
	})
	if err != nil {
		return schedule.Block{}, err
	}
	return added, nil
}

// AddWeekdayBlock appends a block to a customized weekday
func (s *Service) AddWeekdayBlock(ctx context.Context, owner string, weekday int, in BlockInput) (schedule.Block, error) {
	var added schedule.Block
	_, err := s.mutate(ctx, owner, "add weekday block", func(st *schedule.State) error {
		if err := schedule.ValidateWeekday(weekday); err != nil {
			return err
		}
		cfg, ok := st.Weekday(weekday)
		if !ok || !cfg.HasCustom {
			return &schedule.ValidationError{Field: "weekday", Reason: fmt.Sprintf("%s is not customized", dateutil.WeekdayName(weekday))}
		}
		b := newBlock(in, cfg.Blocks)
		if err := st.ValidateBlock(b); err != nil {
			return err
		}
		cfg.Blocks = append(cfg.Blocks, b)
		added = b
		return nil
	})
	if err != nil {
		return schedule.Block{}, err
	}
	return added, nil
}

// UpdateBlock changes a block wherever it lives
func (s *Service) UpdateBlock(ctx context.Context, owner, blockID string, patch BlockPatch) (schedule.Block, error) {
	var updated schedule.Block
	_, err := s.mutate(ctx, owner, "update block", func(st *schedule.State) error {
		blocks, i, _, ok := st.FindBlock(blockID)
		if !ok {
			return &schedule.NotFoundError{Kind: "block", Key: blockID}
		}

		b := (*blocks)[i].Clone()
		if patch.Name != nil {
			b.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Start != nil {
			b.Start = *patch.Start
		}
		if patch.End != nil {
			b.End = *patch.End
		}
		if patch.Color != nil {
			b.Color = *patch.Color
		}
		switch {
		case patch.ClearCategory:
			b.CategoryID = nil
		case patch.CategoryID != nil:
			id := *patch.CategoryID
			b.CategoryID = &id
		}

		if err := st.ValidateBlock(b); err != nil {
			return err
		}
		(*blocks)[i] = b
		updated = b
		return nil
	})
	if err != nil {
		return schedule.Block{}, err
	}
	return updated, nil
}

// DeleteBlock removes a block wherever it lives
func (s *Service) DeleteBlock(ctx context.Context, owner, blockID string) error {
	_, err := s.mutate(ctx, owner, "delete block", func(st *schedule.State) error {
		blocks, i, _, ok := st.FindBlock(blockID)
		if !ok {
			return &schedule.NotFoundError{Kind: "block", Key: blockID}
		}
		*blocks = append((*blocks)[:i], (*blocks)[i+1:]...)
		return nil
	})
	return err
}

// CopyTemplateToWeekday gives a weekday its own block list, starting from a
// snapshot of its base day type's template. Later template edits do not
// propagate. Rejected when the weekday is already customized or its base is
// off-like, since off-like days always use the Off Day template.
func (s *Service) CopyTemplateToWeekday(ctx context.Context, owner string, weekday int) ([]schedule.Block, error) {
	var copied []schedule.Block
	_, err := s.mutate(ctx, owner, "customize weekday", func(st *schedule.State) error {
		cfg, err := st.EnsureWeekday(weekday)
		if err != nil {
			return err
		}
		if cfg.HasCustom {
			return &schedule.ValidationError{Field: "weekday", Reason: fmt.Sprintf("%s is already customized", dateutil.WeekdayName(weekday))}
		}
		base, ok := st.DayType(cfg.BaseDayTypeID)
		if !ok {
			return &schedule.NotFoundError{Kind: "day type", Key: cfg.BaseDayTypeID}
		}
		if !base.IsWorkLike() {
			return &schedule.ValidationError{Field: "weekday", Reason: fmt.Sprintf("%s is based on off-like %q", dateutil.WeekdayName(weekday), base.Name)}
		}

		var source []schedule.Block
		if tpl, ok := st.Template(base.ID); ok {
			source = tpl.Blocks
		}
		copied = schedule.CloneBlocks(source)
		for i := range copied {
			copied[i].ID = schedule.NewID()
		}
		cfg.HasCustom = true
		cfg.Blocks = copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schedule.CloneBlocks(copied), nil
}

// ResetWeekday drops a weekday's custom blocks so it inherits its base
// template again
func (s *Service) ResetWeekday(ctx context.Context, owner string, weekday int) error {
	_, err := s.mutate(ctx, owner, "reset weekday", func(st *schedule.State) error {
		if err := schedule.ValidateWeekday(weekday); err != nil {
			return err
		}
		cfg, ok := st.Weekday(weekday)
		if !ok || !cfg.HasCustom {
			return errUnchanged
		}
		cfg.HasCustom = false
		cfg.Blocks = nil
		return nil
	})
	return err
}

// SetWeekdayBaseType changes the base day type of a weekday. Any custom block
// list is discarded.
func (s *Service) SetWeekdayBaseType(ctx context.Context, owner string, weekday int, dayTypeRef string) (schedule.DayType, error) {
	var base schedule.DayType
	_, err := s.mutate(ctx, owner, "set weekday base", func(st *schedule.State) error {
		if err := schedule.ValidateWeekday(weekday); err != nil {
			return err
		}
		dt, err := st.LookupDayType(dayTypeRef)
		if err != nil {
			return err
		}
		cfg, err := st.EnsureWeekday(weekday)
		if err != nil {
			return err
		}
		cfg.BaseDayTypeID = dt.ID
		cfg.HasCustom = false
		cfg.Blocks = nil
		base = dt
		return nil
	})
	if err != nil {
		return schedule.DayType{}, err
	}
	return base, nil
}

// SetDateOverride assigns a day type to a date or one half of it, replacing
// any override already stored for that (date, period)
func (s *Service) SetDateOverride(ctx context.Context, owner string, date time.Time, period schedule.Period, dayTypeRef, note string) (schedule.Override, error) {
	var o schedule.Override
	_, err := s.mutate(ctx, owner, "set override", func(st *schedule.State) error {
		if !period.Valid() {
			return &schedule.ValidationError{Field: "period", Reason: fmt.Sprintf("%q must be full, am or pm", period)}
		}
		dt, err := st.LookupDayType(dayTypeRef)
		if err != nil {
			return err
		}
		o = schedule.Override{
			Date:      dateutil.StartOfDay(date),
			Period:    period,
			DayTypeID: dt.ID,
			Note:      strings.TrimSpace(note),
		}
		st.SetOverride(o)
		return nil
	})
	if err != nil {
		return schedule.Override{}, err
	}
	return o, nil
}

// ClearDateOverride deletes the override of (date, period) and reports
// whether one existed
func (s *Service) ClearDateOverride(ctx context.Context, owner string, date time.Time, period schedule.Period) (bool, error) {
	removed := false
	_, err := s.mutate(ctx, owner, "clear override", func(st *schedule.State) error {
		if !period.Valid() {
			return &schedule.ValidationError{Field: "period", Reason: fmt.Sprintf("%q must be full, am or pm", period)}
		}
		if !st.DeleteOverride(dateutil.StartOfDay(date), period) {
			return errUnchanged
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}
