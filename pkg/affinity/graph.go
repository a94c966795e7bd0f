// Package affinity builds a weighted co-purchase graph from basket data and
// ranks related products by eigenvector centrality.
package affinity

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Graph is an immutable snapshot of the co-purchase graph. Nodes are product
// names in discovery order; edge weights count the transactions in which both
// endpoints appear. Rebuilds produce a new snapshot; in-flight queries against
// an old one are unaffected.
type Graph struct {
	nodes   []string
	index   map[string]int
	weights map[[2]int]float64
	adj     map[int][]int

	centrality []float64
}

// Build constructs the graph from basket rows. Self-loops are never created,
// and repeated co-occurrence increments the edge weight, so the graph stays
// simple with every weight >= 1.
func Build(baskets [][]string) *Graph {
	g := &Graph{
		index:   make(map[string]int),
		weights: make(map[[2]int]float64),
		adj:     make(map[int][]int),
	}
	for _, basket := range baskets {
		for i := 0; i < len(basket); i++ {
			for j := i + 1; j < len(basket); j++ {
				g.addEdge(basket[i], basket[j])
			}
		}
	}
	g.centrality = g.eigenvectorCentrality()
	return g
}

func (g *Graph) addEdge(a, b string) {
	if a == b {
		return
	}
	ai := g.node(a)
	bi := g.node(b)
	key := edgeKey(ai, bi)
	if _, ok := g.weights[key]; !ok {
		g.adj[ai] = append(g.adj[ai], bi)
		g.adj[bi] = append(g.adj[bi], ai)
	}
	g.weights[key]++
}

func (g *Graph) node(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, name)
	g.index[name] = i
	return i
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Weight returns the co-occurrence count between two products, zero when no
// edge exists.
func (g *Graph) Weight(a, b string) float64 {
	ai, ok := g.index[a]
	if !ok {
		return 0
	}
	bi, ok := g.index[b]
	if !ok {
		return 0
	}
	return g.weights[edgeKey(ai, bi)]
}

// Len returns the number of product nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// eigenvectorCentrality runs weighted power iteration with L2 normalization.
func (g *Graph) eigenvectorCentrality() []float64 {
	n := len(g.nodes)
	if n == 0 {
		return nil
	}

	const (
		maxIterations = 1000
		tolerance     = 1e-10
	)

	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / math.Sqrt(float64(n))
	}

	next := make([]float64, n)
	for iter := 0; iter < maxIterations; iter++ {
		for i := range next {
			next[i] = 0
		}
		for i := 0; i < n; i++ {
			for _, j := range g.adj[i] {
				next[j] += x[i] * g.weights[edgeKey(i, j)]
			}
		}

		var norm float64
		for _, v := range next {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			// isolated graph with no edges; keep the uniform vector
			break
		}

		var delta float64
		for i := range next {
			next[i] /= norm
			delta += math.Abs(next[i] - x[i])
		}
		x, next = next, x
		if delta < tolerance*float64(n) {
			break
		}
	}
	return x
}

const normalizationScale = 50

// Recommendation is one ranked related product.
type Recommendation struct {
	Product string
	// Strength is the product's centrality relative to the mean centrality of
	// the returned set, scaled to a percentage.
	Strength float64
}

// Recommend resolves the query to a node by case-insensitive substring match
// and ranks its direct neighbors by eigenvector centrality. Strengths are
// normalized against the mean centrality of the selected top-N set.
func (g *Graph) Recommend(query string, topN int) (string, []Recommendation) {
	product, ok := g.resolve(query)
	if !ok {
		return "", nil
	}
	if topN <= 0 {
		topN = 5
	}

	pi := g.index[product]
	neighbors := g.adj[pi]
	type scored struct {
		idx   int
		order int
		score float64
	}
	candidates := make([]scored, 0, len(neighbors))
	for order, ni := range neighbors {
		candidates = append(candidates, scored{idx: ni, order: order, score: g.centrality[ni]})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	if len(candidates) == 0 {
		return product, nil
	}

	var total float64
	for _, c := range candidates {
		total += c.score
	}
	average := total / float64(len(candidates))
	if average == 0 {
		average = 1
	}

	out := make([]Recommendation, len(candidates))
	for i, c := range candidates {
		out[i] = Recommendation{
			Product:  g.nodes[c.idx],
			Strength: c.score / average * normalizationScale,
		}
	}
	return product, out
}

// RecommendText formats the ranked list the way the assistant presents it.
func (g *Graph) RecommendText(query string, topN int) string {
	product, recs := g.Recommend(query, topN)
	if product == "" {
		return fmt.Sprintf("No matching product found for '%s'.", query)
	}
	if topN <= 0 {
		topN = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b,
		"Top %d recommended products based on connections with %s, shown as percentage of average strongest connection:\n",
		topN, product)
	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = fmt.Sprintf("%s: %.2f%%", r.Product, r.Strength)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func (g *Graph) resolve(query string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return "", false
	}
	for _, name := range g.nodes {
		if strings.Contains(strings.ToLower(name), needle) {
			return name, true
		}
	}
	return "", false
}
