package schedule

// BaselineDayType describes one of the day types every owner is seeded with
type BaselineDayType struct {
	Key     string
	Name    string
	Kind    Kind
	Color   string
	Default bool
}

// Baselines is the seeded day type set the resolver relies on
var Baselines = []BaselineDayType{
	{Key: KeyWork, Name: NameWork, Kind: WorkLike, Color: "#4A90D9", Default: true},
	{Key: KeyOff, Name: NameOff, Kind: OffLike, Color: "#7ED321", Default: true},
	{Key: KeyHoliday, Name: NameHoliday, Kind: OffLike, Color: "#D0021B"},
	{Key: KeyVacation, Name: NameVacation, Kind: OffLike, Color: "#F5A623"},
	{Key: KeySick, Name: NameSick, Kind: OffLike, Color: "#9B9B9B"},
}

// RequiredKeys are the baseline keys the resolver cannot work without
var RequiredKeys = []string{KeyWork, KeyOff, KeyHoliday}

// Seed adds every missing baseline day type and reports how many were added.
// A baseline counts as present when its key or its display name is taken.
// Existing day types are left untouched.
func (s *State) Seed() int {
	added := 0
	for _, b := range Baselines {
		if _, ok := s.DayTypeByKey(b.Key); ok {
			continue
		}
		if _, ok := s.DayTypeByName(b.Name); ok {
			continue
		}
		dt := DayType{ID: NewID(), Key: b.Key, Name: b.Name, Kind: b.Kind, Color: b.Color}
		if b.Default {
			if _, err := s.defaultFlagged(b.Kind); err != nil {
				dt.Default = true
			}
		}
		s.DayTypes = append(s.DayTypes, dt)
		added++
	}
	return added
}

func (s *State) defaultFlagged(kind Kind) (DayType, error) {
	for _, dt := range s.DayTypes {
		if dt.Default && dt.Kind == kind {
			return dt, nil
		}
	}
	return DayType{}, &NotFoundError{Kind: "default day type", Key: string(kind)}
}

// MissingBaselines lists the required baseline keys that have no day type
func (s *State) MissingBaselines() []string {
	var missing []string
	for _, key := range RequiredKeys {
		if _, ok := s.DayTypeByKey(key); !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
