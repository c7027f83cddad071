package forest

import (
	"math/rand/v2"
	"sort"
)

// treeBuilder grows one CART regression tree on a bootstrap sample. Splits minimize the summed
// squared error of the two children.
type treeBuilder struct {
	x           [][]float64
	y           []float64
	rng         *rand.Rand
	maxDepth    int
	minLeaf     int
	maxFeatures int

	tree    DecisionTree
	scratch []int
}

func newTreeBuilder(x [][]float64, y []float64, opts Options, rng *rand.Rand) *treeBuilder {
	p := len(x[0])
	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > p {
		maxFeatures = p
	}
	return &treeBuilder{
		x:           x,
		y:           y,
		rng:         rng,
		maxDepth:    opts.MaxDepth,
		minLeaf:     max(opts.MinSamplesLeaf, 1),
		maxFeatures: maxFeatures,
		tree:        DecisionTree{FeatureSize: p},
	}
}

// build grows a tree over the given sample indices, which may repeat
func (b *treeBuilder) build(samples []int) DecisionTree {
	b.scratch = make([]int, len(samples))
	b.grow(samples, 0)
	return b.tree
}

// bootstrap draws n indices with replacement
func (b *treeBuilder) bootstrap(n int) []int {
	samples := make([]int, n)
	for i := range samples {
		samples[i] = b.rng.IntN(n)
	}
	return samples
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples[:pos] go left once sorted by feature
	score     float64
}

// grow returns the index of the subtree root and whether it is a leaf
func (b *treeBuilder) grow(samples []int, depth int) (int, bool) {
	sum := 0.0
	pure := true
	for _, s := range samples {
		sum += b.y[s]
		if b.y[s] != b.y[samples[0]] {
			pure = false
		}
	}
	mean := sum / float64(len(samples))

	if pure || len(samples) < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return b.leaf(mean), true
	}

	best, ok := b.bestSplit(samples, sum)
	if !ok {
		return b.leaf(mean), true
	}

	b.sortBy(samples, best.feature)
	left := append([]int(nil), samples[:best.pos]...)
	right := append([]int(nil), samples[best.pos:]...)

	nodeIdx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{FeatureIndex: best.feature, Threshold: best.threshold})
	if depth+1 > b.tree.Depth {
		b.tree.Depth = depth + 1
	}

	l, lLeaf := b.grow(left, depth+1)
	r, rLeaf := b.grow(right, depth+1)

	node := &b.tree.Nodes[nodeIdx]
	node.LeftChild, node.LeftIsLeaf = l, lLeaf
	node.RightChild, node.RightIsLeaf = r, rLeaf
	return nodeIdx, false
}

func (b *treeBuilder) leaf(value float64) int {
	b.tree.Outputs = append(b.tree.Outputs, value)
	return len(b.tree.Outputs) - 1
}

func (b *treeBuilder) candidateFeatures() []int {
	p := b.tree.FeatureSize
	if b.maxFeatures >= p {
		features := make([]int, p)
		for i := range features {
			features[i] = i
		}
		return features
	}
	return b.rng.Perm(p)[:b.maxFeatures]
}

// bestSplit scans every candidate feature. Maximizing sumL²/nL + sumR²/nR is equivalent to
// minimizing the children's squared error.
func (b *treeBuilder) bestSplit(samples []int, total float64) (split, bool) {
	n := len(samples)
	best := split{}
	found := false

	sorted := b.scratch[:n]
	for _, f := range b.candidateFeatures() {
		copy(sorted, samples)
		b.sortBy(sorted, f)

		sumLeft := 0.0
		for i := 0; i < n-1; i++ {
			sumLeft += b.y[sorted[i]]
			nLeft := i + 1
			if nLeft < b.minLeaf || n-nLeft < b.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if lo >= hi {
				continue
			}
			sumRight := total - sumLeft
			score := sumLeft*sumLeft/float64(nLeft) + sumRight*sumRight/float64(n-nLeft)
			if !found || score > best.score {
				threshold := lo + (hi-lo)/2
				if threshold <= lo {
					threshold = hi
				}
				best = split{feature: f, threshold: threshold, pos: nLeft, score: score}
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) sortBy(samples []int, feature int) {
	sort.SliceStable(samples, func(i, j int) bool {
		return b.x[samples[i]][feature] < b.x[samples[j]][feature]
	})
}
