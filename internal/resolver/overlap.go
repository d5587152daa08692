package resolver

import (
	"github.com/username/day-planner/internal/schedule"
)

// Overlap reports two blocks of one list that share time
type Overlap struct {
	First   schedule.Block `json:"first"`
	Second  schedule.Block `json:"second"`
	Minutes int            `json:"minutes"`
}

type segment struct {
	start, end int
}

// segments maps a block onto the day line; overnight blocks wrap into two
func segments(b schedule.Block) []segment {
	if b.Overnight() {
		return []segment{{int(b.Start), schedule.MinutesPerDay}, {0, int(b.End)}}
	}
	return []segment{{int(b.Start), int(b.End)}}
}

// Overlaps lists every pair of blocks that share at least one minute.
// Zero-length blocks never overlap. Nothing is enforced at write time; this
// is a query for rendering layers.
func Overlaps(blocks []schedule.Block) []Overlap {
	ordered := schedule.CloneBlocks(blocks)

	var out []Overlap
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			shared := 0
			for _, a := range segments(ordered[i]) {
				for _, b := range segments(ordered[j]) {
					lo, hi := max(a.start, b.start), min(a.end, b.end)
					if hi > lo {
						shared += hi - lo
					}
				}
			}
			if shared > 0 {
				out = append(out, Overlap{First: ordered[i], Second: ordered[j], Minutes: shared})
			}
		}
	}
	return out
}
