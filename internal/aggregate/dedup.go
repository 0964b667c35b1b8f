package aggregate

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// seenSet tracks endpoint keys within one aggregation pass. The bloom filter
// answers most misses; the exact map settles false positives.
type seenSet struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

func newSeenSet(estimatedItems int) *seenSet {
	if estimatedItems < 1000 {
		estimatedItems = 1000
	}
	return &seenSet{
		filter: bloom.NewWithEstimates(uint(estimatedItems), 0.001),
		exact:  make(map[string]struct{}, estimatedItems),
	}
}

// add records key and reports whether it was new.
func (s *seenSet) add(key string) bool {
	if s.filter.TestString(key) {
		if _, ok := s.exact[key]; ok {
			return false
		}
	}
	s.filter.AddString(key)
	s.exact[key] = struct{}{}
	return true
}
