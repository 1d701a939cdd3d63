package mesh

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// nearest returns up to count of the candidate indices ordered by their distance to pos. Candidates
// at an equal distance keep the order they have in the candidate list. The index exclude is never
// returned; pass -1 to consider every candidate.
func nearest(pos mgl32.Vec3, candidates []int, positions []mgl32.Vec3, count, exclude int) []int {
	type entry struct {
		index int
		dist  float32
	}
	entries := make([]entry, 0, len(candidates))
	for _, c := range candidates {
		if c == exclude {
			continue
		}
		entries = append(entries, entry{index: c, dist: positions[c].Sub(pos).Len()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].dist < entries[j].dist
	})
	if count > len(entries) {
		count = len(entries)
	}
	out := make([]int, count)
	for i := range out {
		out[i] = entries[i].index
	}
	return out
}
