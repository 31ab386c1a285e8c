// Package tree implements a CART-style classification tree with a depth cap
// and deterministic, seeded tie-breaking.
package tree

import (
	"errors"
	"math/rand"
	"sort"
)

const (
	// DefaultMaxDepth caps the tree so the rendered chart stays legible.
	DefaultMaxDepth = 3
	// DefaultSeed fixes the feature visiting order used to break ties.
	DefaultSeed int64 = 42

	minGain = 1e-12
)

var (
	ErrEmpty         = errors.New("tree: no training rows")
	ErrShape         = errors.New("tree: X and y length mismatch")
	ErrNoFeatures    = errors.New("tree: no features")
	ErrRaggedRows    = errors.New("tree: inconsistent number of features in X rows")
	ErrClassOutRange = errors.New("tree: class code out of range")
)

// Node is one node of a fitted tree. Leaves have Left == Right == nil.
type Node struct {
	Feature   int     `json:"-"`
	Name      string  `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Gini      float64 `json:"gini"`
	Samples   int     `json:"samples"`
	Value     []int   `json:"value"`
	Class     int     `json:"class"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return n.Left == nil && n.Right == nil }

// Depth returns the depth of the subtree rooted at n; a single leaf is 0.
func (n *Node) Depth() int {
	if n == nil || n.IsLeaf() {
		return 0
	}
	return 1 + max(n.Left.Depth(), n.Right.Depth())
}

// Leaves returns the number of leaves under n.
func (n *Node) Leaves() int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return n.Left.Leaves() + n.Right.Leaves()
}

// Classifier is a gini classification tree. Fields set before Fit act as
// hyperparameters.
type Classifier struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64

	Root     *Node
	Features []string
	NClasses int

	rnd *rand.Rand
}

// Option configures a Classifier.
type Option func(*Classifier)

func WithMaxDepth(d int) Option       { return func(c *Classifier) { c.MaxDepth = d } }
func WithSeed(seed int64) Option      { return func(c *Classifier) { c.Seed = seed } }
func WithMinSamplesLeaf(n int) Option { return func(c *Classifier) { c.MinSamplesLeaf = n } }

// New returns a classifier with depth 3 and seed 42 unless overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            DefaultSeed,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fit trains on rows X (n x p) labelled with class codes y in
// [0, nClasses). features names the p columns of X.
func (c *Classifier) Fit(X [][]float64, y []int, features []string, nClasses int) error {
	if len(X) == 0 {
		return ErrEmpty
	}
	if len(X) != len(y) {
		return ErrShape
	}
	p := len(features)
	if p == 0 {
		return ErrNoFeatures
	}
	for i := range X {
		if len(X[i]) != p {
			return ErrRaggedRows
		}
		if y[i] < 0 || y[i] >= nClasses {
			return ErrClassOutRange
		}
	}

	c.Features = append([]string(nil), features...)
	c.NClasses = nClasses
	c.rnd = rand.New(rand.NewSource(c.Seed))

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	c.Root = c.build(X, y, idx, 0)
	return nil
}

type split struct {
	gain      float64
	feature   int
	threshold float64
	left      []int
	right     []int
}

func (c *Classifier) build(X [][]float64, y []int, idx []int, depth int) *Node {
	counts := c.counts(y, idx)
	node := &Node{
		Feature: -1,
		Gini:    gini(counts),
		Samples: len(idx),
		Value:   counts,
		Class:   argmax(counts),
	}

	if node.Gini == 0 || len(idx) < c.MinSamplesSplit || (c.MaxDepth > 0 && depth >= c.MaxDepth) {
		return node
	}

	best := split{feature: -1}
	for _, f := range c.rnd.Perm(len(c.Features)) {
		s := c.bestSplit(X, y, idx, f, node.Gini)
		if s.feature >= 0 && s.gain > best.gain+minGain {
			best = s
		}
	}
	if best.feature < 0 {
		return node
	}

	node.Feature = best.feature
	node.Name = c.Features[best.feature]
	node.Threshold = best.threshold
	node.Left = c.build(X, y, best.left, depth+1)
	node.Right = c.build(X, y, best.right, depth+1)
	return node
}

// bestSplit scans midpoints between distinct sorted values of feature f.
func (c *Classifier) bestSplit(X [][]float64, y []int, idx []int, f int, parent float64) split {
	order := append([]int(nil), idx...)
	sort.SliceStable(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

	n := len(order)
	left := make([]int, c.NClasses)
	right := c.counts(y, order)

	result := split{feature: -1}
	for s := 1; s < n; s++ {
		moved := y[order[s-1]]
		left[moved]++
		right[moved]--

		lo, hi := X[order[s-1]][f], X[order[s]][f]
		if lo == hi || s < c.MinSamplesLeaf || n-s < c.MinSamplesLeaf {
			continue
		}

		weighted := (float64(s)*gini(left) + float64(n-s)*gini(right)) / float64(n)
		gain := parent - weighted
		if gain > minGain && gain > result.gain+minGain {
			result = split{
				gain:      gain,
				feature:   f,
				threshold: lo + (hi-lo)/2,
				left:      append([]int(nil), order[:s]...),
				right:     append([]int(nil), order[s:]...),
			}
		}
	}
	return result
}

func (c *Classifier) counts(y []int, idx []int) []int {
	out := make([]int, c.NClasses)
	for _, i := range idx {
		out[y[i]]++
	}
	return out
}

// Predict returns the class code for one row.
func (c *Classifier) Predict(x []float64) int {
	n := c.Root
	for n != nil && !n.IsLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	if n == nil {
		return 0
	}
	return n.Class
}

func gini(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		g -= p * p
	}
	if g < 1e-15 {
		return 0
	}
	return g
}

// argmax returns the first index of the largest count.
func argmax(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}
