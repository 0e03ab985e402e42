package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/shelfsight/imaging/colorclass"
)

func TestProbeOrderPrimaryFirstUnknownLast(t *testing.T) {
	order := ProbeOrder(colorclass.Red, colorclass.Blue)
	assert.Equal(t, colorclass.Red, order[0])
	assert.Equal(t, colorclass.Blue, order[1])
	assert.Equal(t, colorclass.Unknown, order[len(order)-1])
}

func TestProbeOrderDeduplicates(t *testing.T) {
	// Pink is both the secondary and a neighbor of red; it must appear once.
	order := ProbeOrder(colorclass.Red, colorclass.Pink)
	seen := map[colorclass.Category]int{}
	for _, c := range order {
		seen[c]++
	}
	for c, n := range seen {
		assert.Equal(t, 1, n, "category %s", c)
	}
}

func TestProbeOrderUnknownPrimary(t *testing.T) {
	assert.Equal(t,
		[]colorclass.Category{colorclass.Unknown, colorclass.Green},
		ProbeOrder(colorclass.Unknown, colorclass.Green))

	assert.Equal(t,
		[]colorclass.Category{colorclass.Unknown},
		ProbeOrder(colorclass.Unknown, ""))
}

func TestNeighborsSymmetryWithinWarmCluster(t *testing.T) {
	// The table is hand-tuned, not strictly symmetric, but adjacent hues
	// must reference each other.
	assert.Contains(t, Neighbors(colorclass.Red), colorclass.Orange)
	assert.Contains(t, Neighbors(colorclass.Orange), colorclass.Red)
	assert.Contains(t, Neighbors(colorclass.Black), colorclass.White)
	assert.Contains(t, Neighbors(colorclass.White), colorclass.Black)
}
