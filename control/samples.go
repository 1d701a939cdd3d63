package control

import (
	"sort"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/olivierh59500/trampoline-go/export"
)

// SampleTable collects force samples per probe height. Heights are kept in the order they were last
// sampled at, so the most recent measurement is always at the back.
type SampleTable struct {
	values *orderedmap.OrderedMap[float32, []float32]
	count  int
}

// NewSampleTable ...
func NewSampleTable() *SampleTable {
	return &SampleTable{values: orderedmap.NewOrderedMap[float32, []float32]()}
}

// Add records a force sample taken at the given height.
func (s *SampleTable) Add(height, force float32) {
	forces, _ := s.values.Get(height)
	s.values.Delete(height)
	s.values.Set(height, append(forces, force))
	s.count++
}

// Len returns the number of distinct heights.
func (s *SampleTable) Len() int {
	return s.values.Len()
}

// Count returns the total number of samples.
func (s *SampleTable) Count() int {
	return s.count
}

// Clear ...
func (s *SampleTable) Clear() {
	s.values = orderedmap.NewOrderedMap[float32, []float32]()
	s.count = 0
}

// Averaged returns one pair per distinct height holding the mean of its forces, sorted by height.
func (s *SampleTable) Averaged() []export.Pair {
	pairs := make([]export.Pair, 0, s.values.Len())
	for el := s.values.Front(); el != nil; el = el.Next() {
		pairs = append(pairs, export.Pair{X: el.Key, Y: mean(el.Value)})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].X < pairs[j].X
	})
	return pairs
}

// Latest returns the averaged forces of the height sampled last.
func (s *SampleTable) Latest() (export.Pair, bool) {
	el := s.values.Back()
	if el == nil {
		return export.Pair{}, false
	}
	return export.Pair{X: el.Key, Y: mean(el.Value)}, true
}

func mean(values []float32) float32 {
	var sum float32
	for _, v := range values {
		sum += v
	}
	return sum / float32(len(values))
}
