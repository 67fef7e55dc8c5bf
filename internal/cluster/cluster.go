// Package cluster implements the optional k-means clustering of training
// lines into cohorts, each of which gets its own statistics and
// codebook.
//
// Distance is measured under the shared distortion table, means are
// integer-valued (floor of the column average), and iteration stops at a
// fixed cap or as soon as no line changes cluster.
package cluster

import (
	"math/rand"

	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/lines"
)

// MaxIterations bounds the k-means loop.
const MaxIterations = 1000

// Cluster is one cohort: its id, the global line indices assigned to it,
// and its column-wise integer mean.
type Cluster struct {
	ID      int
	Members []int
	Mean    []alphabet.Symbol
}

// Assignment is the result of clustering: one cluster id per training
// line, and the cluster list itself.
type Assignment struct {
	LineCluster []int
	Clusters    []*Cluster
}

// KMeans partitions m's lines into k clusters under d, using rng to pick
// the k initial means uniformly from m's lines. Passing a rand.Rand
// seeded deterministically makes clustering reproducible in tests.
func KMeans(m *lines.Matrix, d *distortion.Table, k int, rng *rand.Rand) *Assignment {
	n := m.NumLines()
	columns := m.Columns

	clusters := make([]*Cluster, k)
	for j := range clusters {
		clusters[j] = &Cluster{ID: j, Mean: make([]alphabet.Symbol, columns)}
	}

	// Initialize means from k lines picked uniformly at random.
	for j := 0; j < k; j++ {
		line := m.Line(rng.Intn(n))
		copy(clusters[j].Mean, line)
	}

	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}

	for iter := 0; iter < MaxIterations; iter++ {
		changed := false
		for j := range clusters {
			clusters[j].Members = clusters[j].Members[:0]
		}

		for i := 0; i < n; i++ {
			line := m.Line(i)
			best := Nearest(line, clusters, d)
			if assignment[i] != best {
				changed = true
				assignment[i] = best
			}
			clusters[best].Members = append(clusters[best].Members, i)
		}

		if !changed && iter > 0 {
			break
		}

		for _, c := range clusters {
			if len(c.Members) == 0 {
				continue
			}
			recalculateMean(c, m, columns)
		}

		if !changed {
			break
		}
	}

	return &Assignment{LineCluster: assignment, Clusters: clusters}
}

// Nearest returns the index of the cluster whose mean is closest to line
// under d. Used both by KMeans' own assignment step and by callers that
// need to place a line outside the training prefix into an existing
// cluster: every coded line needs a cluster id, trained on or not.
func Nearest(line []alphabet.Symbol, clusters []*Cluster, d *distortion.Table) int {
	best := 0
	bestDist := lineDistance(line, clusters[0].Mean, d)
	for j := 1; j < len(clusters); j++ {
		dist := lineDistance(line, clusters[j].Mean, d)
		if dist < bestDist {
			bestDist = dist
			best = j
		}
	}
	return best
}

func lineDistance(line, mean []alphabet.Symbol, d *distortion.Table) float64 {
	sum := 0.0
	for c := range line {
		sum += d.At(int(line[c]), int(mean[c]))
	}
	return sum
}

func recalculateMean(c *Cluster, m *lines.Matrix, columns int) {
	accumulator := make([]uint64, columns)
	for _, idx := range c.Members {
		line := m.Line(idx)
		for j, s := range line {
			accumulator[j] += uint64(s)
		}
	}
	n := uint64(len(c.Members))
	for j := range c.Mean {
		c.Mean[j] = alphabet.Symbol(accumulator[j] / n)
	}
}
