package search

import "github.com/hrygo/shelfsight/imaging/colorclass"

// colorNeighbors maps each category to the perceptually adjacent categories
// probed when the exact-color shard alone is too thin. The table is fixed:
// it bounds the cross-shard expansion to a small constant number of probes
// instead of scanning everything.
var colorNeighbors = map[colorclass.Category][]colorclass.Category{
	colorclass.Red:    {colorclass.Pink, colorclass.Orange},
	colorclass.Orange: {colorclass.Red, colorclass.Yellow, colorclass.Brown},
	colorclass.Yellow: {colorclass.Orange, colorclass.Green},
	colorclass.Green:  {colorclass.Yellow, colorclass.Blue},
	colorclass.Blue:   {colorclass.Green, colorclass.Purple},
	colorclass.Purple: {colorclass.Blue, colorclass.Pink},
	colorclass.Pink:   {colorclass.Red, colorclass.Purple},
	colorclass.Brown:  {colorclass.Orange, colorclass.Black},
	colorclass.White:  {colorclass.Black},
	colorclass.Black:  {colorclass.White, colorclass.Brown},
}

// Neighbors returns the static neighbor set of a category. The result must
// not be mutated.
func Neighbors(c colorclass.Category) []colorclass.Category {
	return colorNeighbors[c]
}

// ProbeOrder builds the ordered, de-duplicated shard probe list for a query
// classification: the primary category first, then the secondary, then the
// primary's neighbors, then unknown as the universal fallback. An unknown
// primary has no neighbors, so the probe list collapses to the unknown
// shard plus the secondary category when one was detected.
func ProbeOrder(primary, secondary colorclass.Category) []colorclass.Category {
	order := make([]colorclass.Category, 0, 5)
	seen := make(map[colorclass.Category]bool, 5)
	push := func(c colorclass.Category) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		order = append(order, c)
	}

	push(primary)
	push(secondary)
	for _, n := range Neighbors(primary) {
		push(n)
	}
	push(colorclass.Unknown)
	return order
}
