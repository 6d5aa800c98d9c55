package classify

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ForestParams configures a random forest. Zero values take defaults.
type ForestParams struct {
	Trees          int // default 100
	MaxDepth       int // 0 grows until leaves are pure
	MinSamplesLeaf int // default 1
	MaxFeatures    int // features tried per split, default sqrt(d)

	// MinImpurityDecrease is the smallest weighted gini decrease a split
	// must achieve. It also stands in for cost-complexity pruning.
	MinImpurityDecrease float64

	Seed int64
}

type treeNode struct {
	feature     int // -1 marks a leaf
	threshold   float64
	left, right int
	dist        []float64
}

type tree struct {
	nodes []treeNode
}

func (t *tree) leaf(row []float64) []float64 {
	i := 0
	for t.nodes[i].feature >= 0 {
		n := t.nodes[i]
		if row[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return t.nodes[i].dist
}

// RandomForest is a bagged ensemble of CART trees with gini splits and
// random feature subsets. Predictions average the leaf class distributions.
type RandomForest struct {
	params ForestParams

	enc         *encoder
	trees       []*tree
	importances []float64
	nFeatures   int
}

// NewRandomForest creates a forest, filling unset params with defaults.
func NewRandomForest(p ForestParams) *RandomForest {
	if p.Trees <= 0 {
		p.Trees = 100
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = 1
	}
	return &RandomForest{params: p}
}

func (rf *RandomForest) Fit(X mat.Matrix, y []string) error {
	n, d, err := checkFit(X, y)
	if err != nil {
		return err
	}
	if d == 0 {
		return ErrNoFeatures
	}
	rf.enc = newEncoder(y)
	rf.nFeatures = d
	codes := rf.enc.encode(y)
	rows := denseRows(X)

	mtry := rf.params.MaxFeatures
	if mtry <= 0 || mtry > d {
		mtry = int(math.Max(1, math.Floor(math.Sqrt(float64(d)))))
	}

	rng := rand.New(rand.NewSource(rf.params.Seed))
	rf.trees = make([]*tree, 0, rf.params.Trees)
	rf.importances = make([]float64, d)

	for t := 0; t < rf.params.Trees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		b := &treeBuilder{
			x:       rows,
			y:       codes,
			classes: len(rf.enc.classes),
			mtry:    mtry,
			params:  rf.params,
			rng:     rng,
			total:   float64(n),
			gain:    make([]float64, d),
		}
		b.grow(sample, 0)
		rf.trees = append(rf.trees, &tree{nodes: b.nodes})

		if s := floats.Sum(b.gain); s > 0 {
			floats.AddScaled(rf.importances, 1/s, b.gain)
		}
	}

	if s := floats.Sum(rf.importances); s > 0 {
		floats.Scale(1/s, rf.importances)
	}
	return nil
}

func (rf *RandomForest) Predict(X mat.Matrix) ([]string, error) {
	n, err := checkPredict(X, rf.trees != nil, rf.nFeatures)
	if err != nil {
		return nil, err
	}
	rows := denseRows(X)
	k := len(rf.enc.classes)
	out := make([]string, n)
	acc := make([]float64, k)
	for i, row := range rows {
		for c := range acc {
			acc[c] = 0
		}
		for _, t := range rf.trees {
			floats.Add(acc, t.leaf(row))
		}
		out[i] = rf.enc.classes[argmax(acc)]
	}
	return out, nil
}

// FeatureImportances returns the mean normalized impurity decrease per
// feature. The values sum to one unless no tree ever split.
func (rf *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, len(rf.importances))
	copy(out, rf.importances)
	return out
}

type treeBuilder struct {
	x       [][]float64
	y       []int
	classes int
	mtry    int
	params  ForestParams
	rng     *rand.Rand
	total   float64
	gain    []float64
	nodes   []treeNode
}

func (b *treeBuilder) counts(idx []int) []float64 {
	c := make([]float64, b.classes)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{feature: -1})

	counts := b.counts(idx)
	n := float64(len(idx))
	impurity := gini(counts, n)

	makeLeaf := func() int {
		dist := make([]float64, b.classes)
		floats.ScaleTo(dist, 1/n, counts)
		b.nodes[id].dist = dist
		return id
	}

	if impurity == 0 ||
		len(idx) < 2*b.params.MinSamplesLeaf ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) {
		return makeLeaf()
	}

	feature, threshold, childImpurity, ok := b.bestSplit(idx, counts)
	if !ok {
		return makeLeaf()
	}
	decrease := n / b.total * (impurity - childImpurity)
	if decrease < b.params.MinImpurityDecrease {
		return makeLeaf()
	}
	b.gain[feature] += decrease

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].feature = feature
	b.nodes[id].threshold = threshold
	b.nodes[id].left = l
	b.nodes[id].right = r
	return id
}

// bestSplit scans a random feature subset for the threshold with the lowest
// weighted child impurity.
func (b *treeBuilder) bestSplit(idx []int, parent []float64) (feature int, threshold, impurity float64, ok bool) {
	n := len(idx)
	minLeaf := b.params.MinSamplesLeaf
	impurity = math.Inf(1)

	sorted := make([]int, n)
	left := make([]float64, b.classes)
	right := make([]float64, b.classes)

	for _, f := range b.rng.Perm(len(b.x[0]))[:b.mtry] {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })
		for c := range left {
			left[c] = 0
		}
		copy(right, parent)

		for p := 0; p < n-1; p++ {
			c := b.y[sorted[p]]
			left[c]++
			right[c]--

			lo, hi := b.x[sorted[p]][f], b.x[sorted[p+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := p+1, n-p-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			imp := (float64(nl)*gini(left, float64(nl)) + float64(nr)*gini(right, float64(nr))) / float64(n)
			if imp < impurity {
				impurity = imp
				feature = f
				threshold = lo + (hi-lo)/2
				ok = true
			}
		}
	}
	return feature, threshold, impurity, ok
}

func denseRows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		row := make([]float64, c)
		for j := range row {
			row[j] = X.At(i, j)
		}
		rows[i] = row
	}
	return rows
}
