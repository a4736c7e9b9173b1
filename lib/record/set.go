// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"slices"
	"sync"
)

// Set is a concurrency-safe, fingerprint-keyed collection of records.
// The session's collector goroutines add to it while the build runs;
// finalization reads the sorted contents once the build has exited.
type Set struct {
	mu         sync.Mutex
	records    map[Fingerprint]Record
	duplicates int
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{records: make(map[Fingerprint]Record)}
}

// Add inserts r and reports whether it was new. A record whose
// fingerprint is already present is counted as a duplicate and
// discarded; the first delivery wins.
func (s *Set) Add(r Record) bool {
	fingerprint := r.Fingerprint()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[fingerprint]; exists {
		s.duplicates++
		return false
	}
	s.records[fingerprint] = r
	return true
}

// Len returns the number of distinct records.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Duplicates returns how many deliveries were discarded as duplicates.
func (s *Set) Duplicates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicates
}

// Records returns the distinct records in [Compare] order.
func (s *Set) Records() []Record {
	s.mu.Lock()
	result := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		result = append(result, r)
	}
	s.mu.Unlock()

	slices.SortFunc(result, func(a, b Record) int { return Compare(&a, &b) })
	return result
}
