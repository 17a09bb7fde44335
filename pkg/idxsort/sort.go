// Package idxsort sorts a timestamp index in memory.
//
// The sort is a stable top-down merge sort over 16-byte entries, comparing
// the big-endian timestamp bytes directly. Two shortcuts keep already ordered
// and reversed runs cheap:
//
//   - if the last entry of the left half is not after the first entry of the
//     right half, the halves are already in order and the merge is skipped;
//   - if the last entry of the right half is strictly before the first entry
//     of the left half, the halves are swapped wholesale.
//
// The swap requires strict ordering: with equal timestamps it would move
// right-half entries ahead of equal left-half entries.
package idxsort

import (
	"fmt"

	"github.com/eunmann/rgt-idx/pkg/rawidx"
)

const es = rawidx.EntrySize

// insertionThreshold is the run length below which insertion sort is used.
const insertionThreshold = 12

// Counters reports how merges were resolved.
type Counters struct {
	Merges        int64 // element-wise merges
	SkippedMerges int64 // halves already in order
	Swaps         int64 // halves swapped wholesale
}

// ScratchSize returns the merge buffer size Sort needs for data of n bytes.
func ScratchSize(n int) int {
	return (n / es / 2) * es
}

// Sort sorts data stably by entry timestamp.
// len(data) must be a multiple of rawidx.EntrySize and scratch must hold at
// least ScratchSize(len(data)) bytes.
func Sort(data, scratch []byte) Counters {
	if len(data)%es != 0 {
		panic(fmt.Sprintf("idxsort: data length %d is not a multiple of %d", len(data), es))
	}
	if len(scratch) < ScratchSize(len(data)) {
		panic(fmt.Sprintf("idxsort: scratch of %d bytes, need %d", len(scratch), ScratchSize(len(data))))
	}
	s := sorter{data: data, scratch: scratch}
	s.sort(0, len(data)/es)
	return s.c
}

type sorter struct {
	data    []byte
	scratch []byte
	c       Counters
}

func (s *sorter) at(i int) []byte {
	return s.data[i*es : i*es+es]
}

func (s *sorter) sort(lo, hi int) {
	if hi-lo <= insertionThreshold {
		s.insertionSort(lo, hi)
		return
	}
	mid := lo + (hi-lo)/2
	s.sort(lo, mid)
	s.sort(mid, hi)
	s.merge(lo, mid, hi)
}

func (s *sorter) insertionSort(lo, hi int) {
	var tmp rawidx.Entry
	for i := lo + 1; i < hi; i++ {
		if rawidx.CompareTimestamps(s.at(i-1), s.at(i)) <= 0 {
			continue
		}
		copy(tmp[:], s.at(i))
		j := i
		for j > lo && rawidx.CompareTimestamps(s.at(j-1), tmp[:]) > 0 {
			j--
		}
		copy(s.data[(j+1)*es:(i+1)*es], s.data[j*es:i*es])
		copy(s.at(j), tmp[:])
	}
}

// merge combines the sorted runs [lo,mid) and [mid,hi). The left run is
// never longer than the right one.
func (s *sorter) merge(lo, mid, hi int) {
	if rawidx.CompareTimestamps(s.at(mid-1), s.at(mid)) <= 0 {
		s.c.SkippedMerges++
		return
	}

	left := s.scratch[:(mid-lo)*es]
	copy(left, s.data[lo*es:mid*es])

	if rawidx.CompareTimestamps(s.at(hi-1), left[:es]) < 0 {
		s.c.Swaps++
		copy(s.data[lo*es:], s.data[mid*es:hi*es])
		copy(s.data[(lo+hi-mid)*es:hi*es], left)
		return
	}

	s.c.Merges++
	i, j, k := 0, mid*es, lo*es
	end := hi * es
	for i < len(left) && j < end {
		if rawidx.CompareTimestamps(left[i:i+es], s.data[j:j+es]) <= 0 {
			copy(s.data[k:k+es], left[i:i+es])
			i += es
		} else {
			copy(s.data[k:k+es], s.data[j:j+es])
			j += es
		}
		k += es
	}
	copy(s.data[k:], left[i:])
}
