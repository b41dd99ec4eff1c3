package transport

import "sort"

// numberRange is a closed interval [start, end] of elements.
type numberRange struct {
	start uint64
	end   uint64
}

func (r numberRange) len() uint64 {
	return r.end - r.start + 1
}

// rangeSet maintains a sorted set of disjoint, non-adjacent closed
// intervals. It is used both for stream byte ranges (acked/in-flight/
// pending) and for packet-number ranges owed an ACK (C1 in the spec).
type rangeSet []numberRange

// add inserts [start, end] into the set, merging with any overlapping or
// adjacent existing ranges.
func (s *rangeSet) add(start, end uint64) {
	ranges := *s
	// Find the first range whose end is not already before start-1.
	i := sort.Search(len(ranges), func(i int) bool {
		return ranges[i].end+1 >= start
	})
	if i == len(ranges) {
		*s = append(ranges, numberRange{start, end})
		return
	}
	if ranges[i].start > end+1 {
		// No overlap/adjacency: insert a new range at i.
		ranges = append(ranges, numberRange{})
		copy(ranges[i+1:], ranges[i:])
		ranges[i] = numberRange{start, end}
		*s = ranges
		return
	}
	// Merge into ranges[i], then absorb any following ranges it now touches.
	if start < ranges[i].start {
		ranges[i].start = start
	}
	if end > ranges[i].end {
		ranges[i].end = end
	}
	j := i + 1
	for j < len(ranges) && ranges[j].start <= ranges[i].end+1 {
		if ranges[j].end > ranges[i].end {
			ranges[i].end = ranges[j].end
		}
		j++
	}
	*s = append(ranges[:i+1], ranges[j:]...)
}

// remove deletes [start, end] from the set, splitting ranges as needed.
func (s *rangeSet) remove(start, end uint64) {
	ranges := *s
	out := ranges[:0]
	for _, r := range ranges {
		if r.end < start || r.start > end {
			out = append(out, r)
			continue
		}
		if r.start < start {
			out = append(out, numberRange{r.start, start - 1})
		}
		if r.end > end {
			out = append(out, numberRange{end + 1, r.end})
		}
	}
	*s = out
}

// removeUntil deletes every element <= n from the set (used to stop owing
// ACKs for ranges the peer has confirmed it saw).
func (s *rangeSet) removeUntil(n uint64) {
	if len(*s) == 0 {
		return
	}
	s.remove((*s)[0].start, n)
}

// contains reports whether every element of [start, end] is present.
func (s rangeSet) contains(start, end uint64) bool {
	for _, r := range s {
		if r.start <= start && end <= r.end {
			return true
		}
		if r.start > start {
			return false
		}
	}
	return false
}

// containsAny reports whether the set overlaps [start, end] at all.
func (s rangeSet) containsAny(start, end uint64) bool {
	for _, r := range s {
		if r.start > end {
			return false
		}
		if r.end >= start {
			return true
		}
	}
	return false
}

func (s rangeSet) count() int {
	return len(s)
}

func (s rangeSet) min() (uint64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[0].start, true
}

func (s rangeSet) max() (uint64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].end, true
}

// span returns the total number of elements covered.
func (s rangeSet) span() uint64 {
	var total uint64
	for _, r := range s {
		total += r.len()
	}
	return total
}

func (s rangeSet) at(i int) numberRange {
	return s[i]
}
