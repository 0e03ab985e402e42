package colorclass

import (
	"math"
	"math/rand"
	"sort"
)

// clusterSeed fixes the PRNG so classification is deterministic for a fixed
// image.
const clusterSeed = 42

type point [3]float64

type cluster struct {
	center     point
	population int
}

// kmeans clusters the points into at most k groups in RGB space and returns
// the clusters ordered by population, largest first. Initialization is
// k-means++ style with a fixed seed.
func kmeans(points []point, k, maxIterations int) []cluster {
	if len(points) == 0 {
		return nil
	}
	if k > len(points) {
		k = len(points)
	}

	rng := rand.New(rand.NewSource(clusterSeed))
	centers := seedCenters(points, k, rng)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestDist := math.MaxFloat64
			for c, center := range centers {
				if d := sqDist(p, center); d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([]point, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assignments[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			sums[c][2] += p[2]
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			centers[c] = point{
				sums[c][0] / float64(counts[c]),
				sums[c][1] / float64(counts[c]),
				sums[c][2] / float64(counts[c]),
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	counts := make([]int, k)
	for _, a := range assignments {
		counts[a]++
	}

	clusters := make([]cluster, 0, k)
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		clusters = append(clusters, cluster{center: centers[c], population: counts[c]})
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].population > clusters[j].population
	})
	return clusters
}

// seedCenters picks initial centers with the k-means++ heuristic: each next
// center is the point farthest from the ones chosen so far, which is stable
// for a fixed input order.
func seedCenters(points []point, k int, rng *rand.Rand) []point {
	centers := make([]point, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	for len(centers) < k {
		var farthest point
		maxDist := -1.0
		for _, p := range points {
			nearest := math.MaxFloat64
			for _, c := range centers {
				if d := sqDist(p, c); d < nearest {
					nearest = d
				}
			}
			if nearest > maxDist {
				maxDist = nearest
				farthest = p
			}
		}
		centers = append(centers, farthest)
	}
	return centers
}

func sqDist(a, b point) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}
