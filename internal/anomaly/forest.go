// Package anomaly maintains an unsupervised outlier model over historical
// feature vectors and scores new vectors into risk tiers.
package anomaly

import (
	"math"
	"math/rand"
)

// tree is one randomized isolation tree. Points that separate from the
// rest of the sample under few random axis-aligned splits are anomalous.
type tree struct {
	root *node
}

type node struct {
	// internal node
	splitDim   int
	splitValue float64
	left       *node
	right      *node

	// external node
	size int
}

func (n *node) external() bool { return n.left == nil }

func buildTree(sample [][]float64, heightLimit int, rng *rand.Rand) *tree {
	return &tree{root: buildNode(sample, 0, heightLimit, rng)}
}

func buildNode(sample [][]float64, height, heightLimit int, rng *rand.Rand) *node {
	if len(sample) <= 1 || height >= heightLimit {
		return &node{size: len(sample)}
	}

	dim := len(sample[0])
	// Pick a dimension that still has spread; give up after a few draws
	// (all-identical points cannot be separated further).
	var splitDim int
	var lo, hi float64
	found := false
	for attempt := 0; attempt < dim; attempt++ {
		d := rng.Intn(dim)
		mn, mx := sample[0][d], sample[0][d]
		for _, v := range sample[1:] {
			if v[d] < mn {
				mn = v[d]
			}
			if v[d] > mx {
				mx = v[d]
			}
		}
		if mx > mn {
			splitDim, lo, hi = d, mn, mx
			found = true
			break
		}
	}
	if !found {
		return &node{size: len(sample)}
	}

	splitValue := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, v := range sample {
		if v[splitDim] < splitValue {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{size: len(sample)}
	}

	return &node{
		splitDim:   splitDim,
		splitValue: splitValue,
		left:       buildNode(left, height+1, heightLimit, rng),
		right:      buildNode(right, height+1, heightLimit, rng),
	}
}

// pathLength is the isolation depth of v, extended by the expected depth
// of the unbuilt subtree at an unresolved external node.
func (t *tree) pathLength(v []float64) float64 {
	n := t.root
	depth := 0.0
	for !n.external() {
		if v[n.splitDim] < n.splitValue {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + avgPathLength(n.size)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points. Normalizing by it maps scores onto [0, 1].
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649015329
	return 2*h - 2*float64(n-1)/float64(n)
}

// anomalyScore converts a mean isolation depth into the standard
// 2^(-E[h]/c(n)) score: ~0.5 is normal, approaching 1 is anomalous.
func anomalyScore(meanDepth float64, sampleSize int) float64 {
	c := avgPathLength(sampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -meanDepth/c)
}
