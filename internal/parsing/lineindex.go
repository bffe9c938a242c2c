package parsing

import "sort"

// LineIndex maps byte offsets to 1-based line numbers. The XML walkers need
// it because the streaming decoder only reports byte offsets.
type LineIndex struct {
	starts []int
}

// NewLineIndex indexes the line starts of data.
func NewLineIndex(data []byte) *LineIndex {
	starts := []int{0}
	for i, b := range data {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// LineAt returns the 1-based line containing the byte offset.
func (ix *LineIndex) LineAt(offset int64) int {
	n := sort.Search(len(ix.starts), func(i int) bool {
		return int64(ix.starts[i]) > offset
	})
	if n < 1 {
		return 1
	}
	return n
}
