package recsys

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"
)

// seenFilter answers "has the user engaged with this post" for one user.
// A Bloom filter rejects most unseen posts cheaply; its positives are
// confirmed against the exact engaged set, so no candidate is ever hidden
// by a false positive.
type seenFilter struct {
	filter *bloom.BloomFilter
	ids    map[int64]struct{}
}

const (
	seenFalsePositiveRate = 0.001
	// Below this size NewWithEstimates yields filters of a few bits.
	seenMinCapacity = 1024
)

func newSeenFilter(ids []int64) *seenFilter {
	if len(ids) == 0 {
		return &seenFilter{}
	}
	f := bloom.NewWithEstimates(uint(max(len(ids), seenMinCapacity)), seenFalsePositiveRate)
	exact := make(map[int64]struct{}, len(ids))
	var buf [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		f.Add(buf[:])
		exact[id] = struct{}{}
	}
	return &seenFilter{filter: f, ids: exact}
}

func (s *seenFilter) has(id int64) bool {
	if s.filter == nil {
		return false
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	if !s.filter.Test(buf[:]) {
		return false
	}
	_, ok := s.ids[id]
	return ok
}
