package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Comparison is the split test used by a tree ensemble
type Comparison string

const (
	// LessThan sends x to the "yes" branch when x < threshold (XGBoost)
	LessThan Comparison = "lt"
	// LessOrEqual sends x to the "yes" branch when x <= threshold (scikit-learn)
	LessOrEqual Comparison = "le"
)

// Node is one node of a tree in the XGBoost JSON dump layout. A node with a
// Leaf value has no children.
type Node struct {
	NodeID         int      `json:"nodeid"`
	Split          string   `json:"split,omitempty"`
	SplitCondition float64  `json:"split_condition,omitempty"`
	Yes            int      `json:"yes,omitempty"`
	No             int      `json:"no,omitempty"`
	Missing        int      `json:"missing,omitempty"`
	Children       []Node   `json:"children,omitempty"`
	Leaf           *float64 `json:"leaf,omitempty"`
}

// flatNode is a compiled node addressed by its node ID
type flatNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	yes       int
	no        int
	missing   int
}

type tree []flatNode

func (t tree) eval(row []float64, cmp Comparison) float64 {
	// compileTree guarantees children have larger IDs than their parent
	n := t[0]
	for !n.leaf {
		v := row[n.feature]
		next := n.no
		switch {
		case math.IsNaN(v):
			next = n.missing
		case cmp == LessOrEqual && v <= n.threshold:
			next = n.yes
		case cmp != LessOrEqual && v < n.threshold:
			next = n.yes
		}
		n = t[next]
	}
	return n.value
}

// compileTree flattens a nested dump into an array indexed by node ID and
// resolves split names against the feature order.
func compileTree(root Node, index map[string]int) (tree, []int, error) {
	var nodes []Node
	var walk func(n Node)
	walk = func(n Node) {
		nodes = append(nodes, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)

	if root.NodeID != 0 {
		return nil, nil, fmt.Errorf("root node has id %d, expected 0", root.NodeID)
	}

	t := make(tree, len(nodes))
	seen := make([]bool, len(nodes))
	var splits []int
	for _, n := range nodes {
		if n.NodeID < 0 || n.NodeID >= len(nodes) {
			return nil, nil, fmt.Errorf("node id %d out of range [0,%d)", n.NodeID, len(nodes))
		}
		if seen[n.NodeID] {
			return nil, nil, fmt.Errorf("duplicate node id %d", n.NodeID)
		}
		seen[n.NodeID] = true

		if n.Leaf != nil {
			t[n.NodeID] = flatNode{leaf: true, value: *n.Leaf}
			continue
		}

		feature, err := resolveFeature(n.Split, index)
		if err != nil {
			return nil, nil, fmt.Errorf("node %d: %w", n.NodeID, err)
		}
		missing := n.Missing
		if missing == 0 {
			missing = n.Yes
		}
		for _, child := range []int{n.Yes, n.No, missing} {
			if child <= n.NodeID || child >= len(nodes) {
				return nil, nil, fmt.Errorf("node %d: invalid child reference %d", n.NodeID, child)
			}
		}
		t[n.NodeID] = flatNode{
			feature:   feature,
			threshold: n.SplitCondition,
			yes:       n.Yes,
			no:        n.No,
			missing:   missing,
		}
		splits = append(splits, feature)
	}

	return t, splits, nil
}

// resolveFeature accepts either a column name from the feature order or an
// XGBoost positional name such as "f3".
func resolveFeature(split string, index map[string]int) (int, error) {
	if i, ok := index[split]; ok {
		return i, nil
	}
	if strings.HasPrefix(split, "f") {
		if i, err := strconv.Atoi(split[1:]); err == nil && i >= 0 && i < len(index) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("split on unknown feature %q", split)
}

// Ensemble is a set of regression trees combined either by summing
// (gradient boosting) or by averaging (random forest).
type Ensemble struct {
	trees      []tree
	comparison Comparison
	baseScore  float64
	average    bool
	splitCount map[string]float64
}

// NewEnsemble compiles the tree dumps. featureOrder names the columns of the
// matrices passed to Predict.
func NewEnsemble(kind Kind, roots []Node, featureOrder []string, cmp Comparison, baseScore float64) (*Ensemble, error) {
	if kind != KindGBTree && kind != KindForest {
		return nil, fmt.Errorf("%q is not a tree ensemble kind", kind)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("ensemble has no trees")
	}
	switch cmp {
	case "":
		cmp = LessThan
	case LessThan, LessOrEqual:
	default:
		return nil, fmt.Errorf("unknown comparison %q", cmp)
	}

	index := make(map[string]int, len(featureOrder))
	for i, f := range featureOrder {
		index[f] = i
	}

	e := &Ensemble{
		comparison: cmp,
		baseScore:  baseScore,
		average:    kind == KindForest,
		splitCount: make(map[string]float64),
	}
	for i, root := range roots {
		t, splits, err := compileTree(root, index)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		e.trees = append(e.trees, t)
		for _, f := range splits {
			e.splitCount[featureOrder[f]]++
		}
	}
	return e, nil
}

// Predict implements Predictor
func (e *Ensemble) Predict(x *mat.Dense) []float64 {
	rows, _ := x.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		sum := 0.0
		for _, t := range e.trees {
			sum += t.eval(row, e.comparison)
		}
		if e.average {
			out[i] = sum / float64(len(e.trees))
		} else {
			out[i] = e.baseScore + sum
		}
	}
	return out
}

// FeatureImportances returns how many times each feature is used as a split
func (e *Ensemble) FeatureImportances() map[string]float64 {
	out := make(map[string]float64, len(e.splitCount))
	for k, v := range e.splitCount {
		out[k] = v
	}
	return out
}
