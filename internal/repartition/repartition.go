// Package repartition turns sized entries into the data a chart needs:
// one slice per entry with its share of the total.
package repartition

import (
	"sort"

	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
)

// Palette is the cycle of slice colors.
var Palette = []string{
	"#eae4e9", "#fff1e6", "#fde2e4", "#fad2e1", "#e2ece9",
	"#bee1e6", "#f0efeb", "#dfe7fd", "#cddafd",
}

// Slice is one chart segment. ID is the full path of the entry, which is
// what a click on the segment navigates to.
type Slice struct {
	ID    string  `json:"id" yaml:"id"`
	Label string  `json:"label" yaml:"label"`
	Value int64   `json:"value" yaml:"value"`
	Share float64 `json:"share" yaml:"share"`
	Color string  `json:"color" yaml:"color"`
}

// Slices builds one slice per entry of known size, in input order.
// Shares are zero when the total is zero.
func Slices(entries []models.Entry, root pathutil.Root) []Slice {
	var total int64
	for _, e := range entries {
		if e.Size != nil {
			total += *e.Size
		}
	}

	slices := make([]Slice, 0, len(entries))
	for _, e := range entries {
		if e.Size == nil {
			continue
		}
		s := Slice{
			ID:    e.Path,
			Label: pathutil.Base(e.Path, root),
			Value: *e.Size,
			Color: Palette[len(slices)%len(Palette)],
		}
		if total > 0 {
			s.Share = float64(*e.Size) / float64(total)
		}
		slices = append(slices, s)
	}
	return slices
}

// Total returns the sum of the slice values.
func Total(slices []Slice) int64 {
	var total int64
	for _, s := range slices {
		total += s.Value
	}
	return total
}

// Bars returns the width of each slice's bar so that the widths add up to
// width. Remainders go to the slices that lost the most to rounding.
func Bars(slices []Slice, width int) []int {
	bars := make([]int, len(slices))
	total := Total(slices)
	if total <= 0 || width <= 0 {
		return bars
	}

	type remainder struct {
		i    int
		frac float64
	}
	rems := make([]remainder, len(slices))
	used := 0
	for i, s := range slices {
		exact := float64(s.Value) / float64(total) * float64(width)
		bars[i] = int(exact)
		used += bars[i]
		rems[i] = remainder{i: i, frac: exact - float64(bars[i])}
	}

	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for k := 0; used < width && k < len(rems); k++ {
		bars[rems[k].i]++
		used++
	}
	return bars
}
