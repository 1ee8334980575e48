package optimization

import (
	"math"
	"math/rand"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
)

// PheromoneStrategy selects the pheromone update rule
type PheromoneStrategy string

const (
	// StrategyBestAnt updates every edge once per iteration from the best tour so far:
	// tau = rho*tau + (1-rho)*delta.
	StrategyBestAnt PheromoneStrategy = "best_ant"
	// StrategyAllAnts updates every edge after each ant's construction:
	// tau = (1-rho)*tau + delta.
	StrategyAllAnts PheromoneStrategy = "all_ants"
)

// defaultRNGSeed is used when callers pass Seed == 0.
const defaultRNGSeed int64 = 1

// tauFloor replaces a missing pheromone entry during selection.
const tauFloor = 1e-6

// ACOParams is the immutable optimizer configuration
type ACOParams struct {
	Alpha         float64           `json:"alpha" yaml:"alpha"`
	Beta          float64           `json:"beta" yaml:"beta"`
	Rho           float64           `json:"rho" yaml:"rho"`
	Q             float64           `json:"q" yaml:"q"`
	TauInit       float64           `json:"tau_init" yaml:"tau_init"`
	NumAnts       int               `json:"num_ants" yaml:"num_ants"`
	NumIterations int               `json:"num_iterations" yaml:"num_iterations"`
	Tmax          float64           `json:"tmax" yaml:"tmax"`
	Strategy      PheromoneStrategy `json:"strategy" yaml:"strategy"`
	Seed          int64             `json:"seed" yaml:"seed"`
}

// DefaultACOParams returns alpha 2, beta 3, rho 0.1, Q 1, tau_init 1,
// 20 ants, 100 iterations, Tmax 480 and the best-ant strategy.
func DefaultACOParams() ACOParams {
	return ACOParams{
		Alpha:         2.0,
		Beta:          3.0,
		Rho:           0.1,
		Q:             1.0,
		TauInit:       1.0,
		NumAnts:       20,
		NumIterations: 100,
		Tmax:          480,
		Strategy:      StrategyBestAnt,
	}
}

// Validate checks parameter ranges.
func (p ACOParams) Validate() error {
	switch {
	case p.Rho < 0 || p.Rho > 1:
		return errs.Validation("rho", "must be in [0,1], got %v", p.Rho)
	case p.TauInit < 0:
		return errs.Validation("tau_init", "must be non-negative, got %v", p.TauInit)
	case p.Q < 0:
		return errs.Validation("q", "must be non-negative, got %v", p.Q)
	case p.NumAnts < 1:
		return errs.Validation("num_ants", "must be positive, got %d", p.NumAnts)
	case p.NumIterations < 1:
		return errs.Validation("num_iterations", "must be positive, got %d", p.NumIterations)
	case p.Tmax < 0:
		return errs.Validation("tmax", "must be non-negative, got %v", p.Tmax)
	}
	switch p.Strategy {
	case StrategyBestAnt, StrategyAllAnts, "":
		return nil
	}
	return errs.Validation("strategy", "unknown pheromone strategy %q", p.Strategy)
}

// GraphNode is a POI vertex: utility, visit duration and position
type GraphNode struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Utility  float64 `json:"utility"`
	Duration float64 `json:"duration"` // minutes
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	IsStart  bool    `json:"is_start,omitempty"`
	IsEnd    bool    `json:"is_end,omitempty"`

	// Opening window in minutes since the tour start. Without a window the
	// node can be visited at any time.
	HasWindow bool    `json:"has_window,omitempty"`
	OpensAt   float64 `json:"opens_at,omitempty"`
	ClosesAt  float64 `json:"closes_at,omitempty"`
}

// VisitStart returns when a visit reaching the node at arrival can begin,
// waiting for it to open. ok is false once the node has closed.
func (n GraphNode) VisitStart(arrival float64) (start float64, ok bool) {
	if !n.HasWindow {
		return arrival, true
	}
	start = math.Max(arrival, n.OpensAt)
	return start, start <= n.ClosesAt
}

// GraphEdge is a directed travel-time weight in minutes
type GraphEdge struct {
	From    int     `json:"from"`
	To      int     `json:"to"`
	Minutes float64 `json:"minutes"`
}

// Graph is a weighted POI graph with adjacency lookup
type Graph struct {
	Nodes     []GraphNode
	Edges     []GraphEdge
	index     map[int]int
	adjacency map[[2]int]float64
}

// NewGraph builds the adjacency and node index from nodes and edges.
func NewGraph(nodes []GraphNode, edges []GraphEdge) *Graph {
	g := &Graph{
		Nodes:     nodes,
		Edges:     edges,
		index:     make(map[int]int, len(nodes)),
		adjacency: make(map[[2]int]float64, len(edges)),
	}
	for i, n := range nodes {
		g.index[n.ID] = i
	}
	for _, e := range edges {
		g.adjacency[[2]int{e.From, e.To}] = e.Minutes
	}
	return g
}

// Travel returns the minutes from i to j, or +Inf when no edge exists.
func (g *Graph) Travel(i, j int) float64 {
	if d, ok := g.adjacency[[2]int{i, j}]; ok {
		return d
	}
	return math.Inf(1)
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (GraphNode, bool) {
	idx, ok := g.index[id]
	if !ok {
		return GraphNode{}, false
	}
	return g.Nodes[idx], true
}

// AntState is one ant's partial tour
type AntState struct {
	Current           int
	Visited           map[int]bool
	Path              []int
	Elapsed           float64
	TotalSatisfaction float64
}

// Tour is a finished path with its time cost and satisfaction
type Tour struct {
	Path              []int   `json:"path"`
	TotalCost         float64 `json:"total_cost"`
	TotalSatisfaction float64 `json:"total_satisfaction"`
}

func (a *AntState) tour() Tour {
	return Tour{
		Path:              append([]int(nil), a.Path...),
		TotalCost:         a.Elapsed,
		TotalSatisfaction: a.TotalSatisfaction,
	}
}

// ACOOptimizer constructs single-day tours on a Graph
type ACOOptimizer struct {
	graph        *Graph
	satisfaction map[int]float64
	params       ACOParams
	start        int
	end          int
	hasEnd       bool

	tau map[[2]int]float64
	eta map[[2]int]float64
	rng *rand.Rand
}

// ACOOption customizes an optimizer
type ACOOption func(*ACOOptimizer)

// WithEndNode closes every tour at the given node.
func WithEndNode(id int) ACOOption {
	return func(o *ACOOptimizer) {
		o.end = id
		o.hasEnd = true
	}
}

// WithRand injects the random source.
func WithRand(r *rand.Rand) ACOOption {
	return func(o *ACOOptimizer) { o.rng = r }
}

// NewACOOptimizer prepares pheromone and heuristic tables for graph.
// satisfaction maps node id to S; missing entries count as 0.
func NewACOOptimizer(graph *Graph, satisfaction map[int]float64, params ACOParams, start int, opts ...ACOOption) (*ACOOptimizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Strategy == "" {
		params.Strategy = StrategyBestAnt
	}

	o := &ACOOptimizer{
		graph:        graph,
		satisfaction: satisfaction,
		params:       params,
		start:        start,
		tau:          make(map[[2]int]float64, len(graph.Edges)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		seed := params.Seed
		if seed == 0 {
			seed = defaultRNGSeed
		}
		o.rng = rand.New(rand.NewSource(seed))
	}

	for _, e := range graph.Edges {
		o.tau[[2]int{e.From, e.To}] = params.TauInit
	}

	s := make([]float64, len(graph.Nodes))
	byPosition := make(map[[2]int]float64, len(graph.Edges))
	for i, n := range graph.Nodes {
		s[i] = satisfaction[n.ID]
	}
	for i, ni := range graph.Nodes {
		for j, nj := range graph.Nodes {
			if i != j {
				byPosition[[2]int{i, j}] = graph.Travel(ni.ID, nj.ID)
			}
		}
	}
	positional := EtaMatrix(s, byPosition)
	o.eta = make(map[[2]int]float64, len(positional))
	for k, v := range positional {
		o.eta[[2]int{graph.Nodes[k[0]].ID, graph.Nodes[k[1]].ID}] = v
	}
	return o, nil
}

// Run executes all iterations and returns the best tour by total satisfaction.
func (o *ACOOptimizer) Run() Tour {
	best := Tour{TotalSatisfaction: -1}

	for it := 0; it < o.params.NumIterations; it++ {
		for a := 0; a < o.params.NumAnts; a++ {
			t := o.constructTour()
			if t.TotalSatisfaction > best.TotalSatisfaction {
				best = t
			}
			if o.params.Strategy == StrategyAllAnts {
				o.localUpdate(t)
			}
		}
		if o.params.Strategy == StrategyBestAnt {
			o.globalUpdate(best)
		}
	}
	return best
}

// Pheromone returns the current value on edge (i, j).
func (o *ACOOptimizer) Pheromone(i, j int) float64 {
	return o.tau[[2]int{i, j}]
}

// Pheromones returns a copy of the pheromone table.
func (o *ACOOptimizer) Pheromones() map[[2]int]float64 {
	out := make(map[[2]int]float64, len(o.tau))
	for k, v := range o.tau {
		out[k] = v
	}
	return out
}

func (o *ACOOptimizer) constructTour() Tour {
	state := &AntState{
		Current: o.start,
		Visited: map[int]bool{o.start: true},
		Path:    []int{o.start},
	}

	for {
		feasible := o.feasibleNodes(state)
		if len(feasible) == 0 {
			break
		}
		next := o.selectNext(state.Current, feasible)
		node, ok := o.graph.Node(next)
		if !ok {
			break
		}
		begin, _ := node.VisitStart(state.Elapsed + o.graph.Travel(state.Current, next))
		state.Elapsed = begin + node.Duration
		state.TotalSatisfaction += o.satisfaction[next] * node.Duration
		state.Path = append(state.Path, next)
		state.Visited[next] = true
		state.Current = next
	}

	if o.hasEnd && !state.Visited[o.end] {
		state.Path = append(state.Path, o.end)
	}
	return state.tour()
}

// feasibleNodes lists unvisited nodes with S > 0 that are open on arrival
// (after waiting for them to open) and still fit in Tmax.
func (o *ACOOptimizer) feasibleNodes(state *AntState) []int {
	var out []int
	for _, n := range o.graph.Nodes {
		j := n.ID
		if state.Visited[j] {
			continue
		}
		if o.hasEnd && j == o.end {
			continue
		}
		if o.satisfaction[j] <= 0 {
			continue
		}
		d := o.graph.Travel(state.Current, j)
		if math.IsInf(d, 1) {
			continue
		}
		begin, open := n.VisitStart(state.Elapsed + d)
		if !open || begin+n.Duration > o.params.Tmax {
			continue
		}
		out = append(out, j)
	}
	return out
}

// selectNext draws the next node by roulette wheel over tau^alpha * eta^beta.
func (o *ACOOptimizer) selectNext(current int, feasible []int) int {
	weights := make([]float64, len(feasible))
	total := 0.0
	for k, j := range feasible {
		tau, ok := o.tau[[2]int{current, j}]
		if !ok {
			tau = tauFloor
		}
		w := math.Pow(tau, o.params.Alpha) * math.Pow(o.eta[[2]int{current, j}], o.params.Beta)
		weights[k] = w
		total += w
	}

	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return feasible[o.rng.Intn(len(feasible))]
	}

	r := o.rng.Float64()
	cumulative := 0.0
	for k, j := range feasible {
		cumulative += weights[k] / total
		if r <= cumulative {
			return j
		}
	}
	return feasible[len(feasible)-1]
}

// deposits returns Q/cost on every edge of the tour, Q when the cost is not positive.
func (o *ACOOptimizer) deposits(t Tour) map[[2]int]float64 {
	deposit := o.params.Q
	if t.TotalCost > 0 {
		deposit = o.params.Q / t.TotalCost
	}
	delta := make(map[[2]int]float64, len(t.Path))
	for k := 0; k+1 < len(t.Path); k++ {
		delta[[2]int{t.Path[k], t.Path[k+1]}] = deposit
	}
	return delta
}

func (o *ACOOptimizer) localUpdate(t Tour) {
	delta := o.deposits(t)
	for edge, tau := range o.tau {
		o.tau[edge] = (1-o.params.Rho)*tau + delta[edge]
	}
}

func (o *ACOOptimizer) globalUpdate(best Tour) {
	delta := o.deposits(best)
	for edge, tau := range o.tau {
		o.tau[edge] = o.params.Rho*tau + (1-o.params.Rho)*delta[edge]
	}
}
