package schedule

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateWeekday checks a Monday-based weekday index
func ValidateWeekday(weekday int) error {
	if weekday < 0 || weekday > 6 {
		return &ValidationError{Field: "weekday", Reason: fmt.Sprintf("%d is outside 0..6", weekday)}
	}
	return nil
}

// ValidateBlock checks the fields of a block against the owner's state
func (s *State) ValidateBlock(b Block) error {
	if strings.TrimSpace(b.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !b.Start.Valid() {
		return &ValidationError{Field: "start", Reason: fmt.Sprintf("minute %d outside 0..1439", int(b.Start))}
	}
	if !b.End.Valid() {
		return &ValidationError{Field: "end", Reason: fmt.Sprintf("minute %d outside 0..1439", int(b.End))}
	}
	if !ValidColor(b.Color) {
		return &ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not #RRGGBB", b.Color)}
	}
	if b.CategoryID != nil {
		if _, ok := s.Category(*b.CategoryID); !ok {
			return &NotFoundError{Kind: "category", Key: *b.CategoryID}
		}
	}
	return nil
}

// ValidateCategory checks a category and its name uniqueness
func (s *State) ValidateCategory(c Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !ValidColor(c.Color) {
		return &ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not #RRGGBB", c.Color)}
	}
	if existing, ok := s.CategoryByName(c.Name); ok && existing.ID != c.ID {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("category %q already exists", c.Name)}
	}
	return nil
}

// ValidateDayType checks a day type, its name and key uniqueness and the
// one-default-per-kind rule
func (s *State) ValidateDayType(dt DayType) error {
	if strings.TrimSpace(dt.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if dt.Key == "" {
		return &ValidationError{Field: "key", Reason: "must not be empty"}
	}
	if !dt.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("%q must be work or off", dt.Kind)}
	}
	if !ValidColor(dt.Color) {
		return &ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not #RRGGBB", dt.Color)}
	}
	for _, other := range s.DayTypes {
		if other.ID == dt.ID {
			continue
		}
		if strings.EqualFold(other.Name, dt.Name) {
			return &ValidationError{Field: "name", Reason: fmt.Sprintf("day type %q already exists", dt.Name)}
		}
		if other.Key == dt.Key {
			return &ValidationError{Field: "key", Reason: fmt.Sprintf("day type key %q already exists", dt.Key)}
		}
		if dt.Default && other.Default && other.Kind == dt.Kind {
			return &ValidationError{Field: "default", Reason: fmt.Sprintf("%q is already the default %s-like day type", other.Name, dt.Kind)}
		}
	}
	return nil
}

// ValidateSettings checks the owner settings
func ValidateSettings(settings Settings) error {
	if settings.WeekStart < 0 || settings.WeekStart > 6 {
		return &ValidationError{Field: "week_start", Reason: fmt.Sprintf("%d is outside 0..6", settings.WeekStart)}
	}
	if settings.DefaultView == "" {
		return nil
	}
	for _, v := range Views {
		if settings.DefaultView == v {
			return nil
		}
	}
	return &ValidationError{Field: "default_view", Reason: fmt.Sprintf("%q must be one of %s", settings.DefaultView, strings.Join(Views, ", "))}
}

// Check walks the whole state and reports every broken reference or
// malformed value at once. It returns nil or an *IntegrityError.
func (s *State) Check() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := ValidateSettings(s.Settings); err != nil {
		addf("settings: %v", err)
	}

	categoryIDs := make(map[string]bool, len(s.Categories))
	categoryNames := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if categoryIDs[c.ID] {
			addf("category id %q is duplicated", c.ID)
		}
		categoryIDs[c.ID] = true
		name := strings.ToLower(c.Name)
		if categoryNames[name] {
			addf("category name %q is duplicated", c.Name)
		}
		categoryNames[name] = true
		if strings.TrimSpace(c.Name) == "" || !ValidColor(c.Color) {
			addf("category %q is malformed", c.ID)
		}
	}

	dayTypeIDs := make(map[string]bool, len(s.DayTypes))
	for _, dt := range s.DayTypes {
		if dayTypeIDs[dt.ID] {
			addf("day type id %q is duplicated", dt.ID)
			continue
		}
		dayTypeIDs[dt.ID] = true
		if err := s.ValidateDayType(dt); err != nil {
			addf("day type %q: %v", dt.ID, err)
		}
	}

	blockIDs := make(map[string]bool)
	checkBlocks := func(owner string, blocks []Block) {
		for _, b := range blocks {
			if blockIDs[b.ID] {
				addf("%s: block id %q is duplicated", owner, b.ID)
			}
			blockIDs[b.ID] = true
			if b.CategoryID != nil && !categoryIDs[*b.CategoryID] {
				addf("%s: block %q references unknown category %q", owner, b.ID, *b.CategoryID)
				continue
			}
			if err := s.ValidateBlock(b); err != nil {
				addf("%s: block %q: %v", owner, b.ID, err)
			}
		}
	}

	for _, id := range sortedKeys(s.Templates) {
		tpl := s.Templates[id]
		if !dayTypeIDs[id] || tpl.DayTypeID != id {
			addf("template references unknown day type %q", id)
		}
		checkBlocks("template "+id, tpl.Blocks)
	}

	for wd := 0; wd < 7; wd++ {
		cfg, ok := s.Weekdays[wd]
		if !ok {
			continue
		}
		label := fmt.Sprintf("weekday %d", wd)
		if cfg.Weekday != wd {
			addf("%s: config is stored under weekday %d", label, cfg.Weekday)
		}
		if !dayTypeIDs[cfg.BaseDayTypeID] {
			addf("%s: references unknown day type %q", label, cfg.BaseDayTypeID)
		}
		if !cfg.HasCustom && len(cfg.Blocks) > 0 {
			addf("%s: has custom blocks but is not custom", label)
		}
		checkBlocks(label, cfg.Blocks)
	}
	for wd := range s.Weekdays {
		if ValidateWeekday(wd) != nil {
			addf("weekday %d is outside 0..6", wd)
		}
	}

	for _, o := range s.SortedOverrides() {
		label := "override " + o.Date.Format("2006-01-02") + "/" + string(o.Period)
		if !o.Period.Valid() {
			addf("%s: invalid period", label)
		}
		if !dayTypeIDs[o.DayTypeID] {
			addf("%s: references unknown day type %q", label, o.DayTypeID)
		}
	}

	if len(problems) > 0 {
		return &IntegrityError{Problems: problems}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
