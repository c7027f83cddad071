package forest

import (
	"fmt"
)

// A Node is a splitting decision of the form "x[FeatureIndex] < Threshold ?"
type Node struct {
	FeatureIndex int     `json:"feature_index"`
	Threshold    float64 `json:"threshold"`
	LeftChild    int     `json:"left_child"`
	LeftIsLeaf   bool    `json:"left_is_leaf"`
	RightChild   int     `json:"right_child"`
	RightIsLeaf  bool    `json:"right_is_leaf"`
}

// A DecisionTree maps a feature vector to a real number. Nodes is a flat list with the root at
// index 0; a child index points into Nodes, or into Outputs when the child is a leaf. A tree
// with no nodes is a single leaf and always returns Outputs[0].
type DecisionTree struct {
	Nodes       []Node    `json:"nodes"`
	Outputs     []float64 `json:"outputs"`
	FeatureSize int       `json:"feature_size"`
	// Depth is the maximum depth of any leaf in the tree
	Depth int `json:"depth"`
}

// Bin drops x down the tree and returns the index of the leaf it ends up in.
// The caller guarantees len(x) == FeatureSize.
func (t *DecisionTree) Bin(x []float64) int {
	if len(t.Nodes) == 0 {
		return 0
	}
	cur := t.Nodes[0]
	for i := 0; i < t.Depth; i++ {
		if x[cur.FeatureIndex] < cur.Threshold {
			if cur.LeftIsLeaf {
				return cur.LeftChild
			}
			cur = t.Nodes[cur.LeftChild]
		} else {
			if cur.RightIsLeaf {
				return cur.RightChild
			}
			cur = t.Nodes[cur.RightChild]
		}
	}
	panic("tree traversal did not terminate")
}

// Evaluate returns the output of the leaf x falls into
func (t *DecisionTree) Evaluate(x []float64) float64 {
	return t.Outputs[t.Bin(x)]
}

// validate checks that every index is in range and traversal terminates within Depth steps
func (t *DecisionTree) validate() error {
	if len(t.Outputs) == 0 {
		return fmt.Errorf("tree has no outputs")
	}
	if len(t.Nodes) == 0 {
		if len(t.Outputs) != 1 {
			return fmt.Errorf("single-leaf tree has %d outputs", len(t.Outputs))
		}
		return nil
	}

	check := func(child int, leaf bool) error {
		if leaf && (child < 0 || child >= len(t.Outputs)) {
			return fmt.Errorf("leaf index %d out of range", child)
		}
		if !leaf && (child <= 0 || child >= len(t.Nodes)) {
			return fmt.Errorf("node index %d out of range", child)
		}
		return nil
	}

	var walk func(idx, depth int) error
	walk = func(idx, depth int) error {
		if depth > t.Depth {
			return fmt.Errorf("path deeper than recorded depth %d", t.Depth)
		}
		n := t.Nodes[idx]
		if n.FeatureIndex < 0 || n.FeatureIndex >= t.FeatureSize {
			return fmt.Errorf("feature index %d out of range", n.FeatureIndex)
		}
		for _, c := range []struct {
			idx  int
			leaf bool
		}{{n.LeftChild, n.LeftIsLeaf}, {n.RightChild, n.RightIsLeaf}} {
			if err := check(c.idx, c.leaf); err != nil {
				return err
			}
			if !c.leaf {
				if err := walk(c.idx, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(0, 1)
}
