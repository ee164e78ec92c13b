package learn

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestConfig controls random-forest training.
type ForestConfig struct {
	Trees           int
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MaxFeatures     int // 0 means floor(sqrt(features))
	Seed            uint64
}

// DefaultForestConfig is 100 bootstrapped Gini trees with a fixed seed.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           100,
		MinSamplesSplit: 2,
		Seed:            DefaultSeed,
	}
}

// Forest is an ensemble of CART trees voting by averaged class probability.
type Forest struct {
	Classes  []string `json:"classes"`
	Features int      `json:"features"`
	Trees    []Tree   `json:"trees"`
}

// Tree is a flattened decision tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Feature >= 0 and a leaf otherwise. Samples with
// x[Feature] <= Threshold go left.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Probs     []float64 `json:"p,omitempty"`
}

// FitForest trains a random forest on X with labels y. Each tree draws its own
// bootstrap sample from a generator seeded by (cfg.Seed, tree index), so the
// result does not depend on goroutine scheduling.
func FitForest(X [][]float64, y []string, cfg ForestConfig) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, ErrEmptyTrainingSet
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	p := len(X[0])
	for i, x := range X {
		if len(x) != p {
			return nil, fmt.Errorf("%w: ragged row %d", ErrDimension, i)
		}
	}
	mtry := cfg.MaxFeatures
	if mtry <= 0 || mtry > p {
		mtry = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
	}

	classes := uniqueSorted(y)
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	labels := make([]int, len(y))
	for i, l := range y {
		labels[i] = classIdx[l]
	}

	f := &Forest{Classes: classes, Features: p, Trees: make([]Tree, cfg.Trees)}

	var g errgroup.Group
	for t := 0; t < cfg.Trees; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(t)))
			sample := make([]int, len(X))
			for i := range sample {
				sample[i] = rng.IntN(len(X))
			}
			b := &treeBuilder{
				X:       X,
				y:       labels,
				classes: len(classes),
				cfg:     cfg,
				mtry:    mtry,
				rng:     rng,
			}
			b.build(sample, 0)
			f.Trees[t] = Tree{Nodes: b.nodes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// PredictProba averages the leaf class distributions over all trees.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != f.Features {
		return nil, fmt.Errorf("%w: forest expects %d features, got %d", ErrDimension, f.Features, len(x))
	}
	probs := make([]float64, len(f.Classes))
	for _, t := range f.Trees {
		leaf := t.leaf(x)
		for i, p := range leaf.Probs {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(f.Trees))
	}
	return probs, nil
}

// Predict returns the most probable label. Ties go to the first label in
// sorted order.
func (f *Forest) Predict(x []float64) (string, error) {
	probs, err := f.PredictProba(x)
	if err != nil {
		return "", err
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return f.Classes[best], nil
}

func (t Tree) leaf(x []float64) Node {
	n := t.Nodes[0]
	for n.Feature >= 0 {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n
}

type treeBuilder struct {
	X       [][]float64
	y       []int
	classes int
	cfg     ForestConfig
	mtry    int
	rng     *rand.Rand
	nodes   []Node
}

// build appends the subtree for idx and returns its node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	counts := make([]int, b.classes)
	for _, i := range idx {
		counts[b.y[i]]++
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	if b.isLeaf(idx, counts, depth) {
		b.nodes[self].Probs = distribution(counts, len(idx))
		return self
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		b.nodes[self].Probs = distribution(counts, len(idx))
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

func (b *treeBuilder) isLeaf(idx []int, counts []int, depth int) bool {
	if len(idx) < b.cfg.MinSamplesSplit {
		return true
	}
	if b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth {
		return true
	}
	for _, c := range counts {
		if c == len(idx) {
			return true
		}
	}
	return false
}

// bestSplit scans a random subset of features for the threshold with the
// lowest weighted Gini impurity.
func (b *treeBuilder) bestSplit(idx []int, counts []int) (int, float64, bool) {
	n := float64(len(idx))
	bestScore := gini(counts, len(idx)) * n
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, len(idx))
	left := make([]int, b.classes)
	right := make([]int, b.classes)

	for _, feature := range b.rng.Perm(len(b.X[0]))[:b.mtry] {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool {
			return b.X[sorted[i]][feature] < b.X[sorted[j]][feature]
		})

		for c := range left {
			left[c] = 0
			right[c] = counts[c]
		}

		for k := 0; k < len(sorted)-1; k++ {
			cls := b.y[sorted[k]]
			left[cls]++
			right[cls]--

			cur, next := b.X[sorted[k]][feature], b.X[sorted[k+1]][feature]
			if cur == next {
				continue
			}
			nl := k + 1
			nr := len(sorted) - nl
			score := gini(left, nl)*float64(nl) + gini(right, nr)*float64(nr)
			if score < bestScore-1e-12 {
				bestScore = score
				bestFeature = feature
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func distribution(counts []int, n int) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
	return out
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
