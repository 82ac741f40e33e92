package geo

import (
	"cmp"
	"fmt"
	"math"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/topk"
	"github.com/harvesthub/catalog-engine/model"
)

type edge struct {
	to     int
	weight float64
}

// Graph is a directed weighted graph keyed by string node IDs.
// Edge weights must be non-negative.
type Graph struct {
	index map[string]int
	names []string
	adj   [][]edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode registers id and returns its internal position. Adding an existing
// node is a no-op.
func (g *Graph) AddNode(id string) int {
	if pos, ok := g.index[id]; ok {
		return pos
	}
	pos := len(g.names)
	g.index[id] = pos
	g.names = append(g.names, id)
	g.adj = append(g.adj, nil)
	return pos
}

// AddEdge adds a directed edge, creating missing nodes.
func (g *Graph) AddEdge(from, to string, weight float64) error {
	if math.IsNaN(weight) || weight < 0 {
		return errors.NewValidationError("weight", fmt.Sprintf("edge %s->%s has invalid weight %v", from, to, weight))
	}
	f := g.AddNode(from)
	t := g.AddNode(to)
	g.adj[f] = append(g.adj[f], edge{to: t, weight: weight})
	return nil
}

// AddUndirectedEdge adds the edge in both directions.
func (g *Graph) AddUndirectedEdge(a, b string, weight float64) error {
	if err := g.AddEdge(a, b, weight); err != nil {
		return err
	}
	return g.AddEdge(b, a, weight)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.names)
}

// Neighbors returns the IDs adjacent to id.
func (g *Graph) Neighbors(id string) []string {
	pos, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[pos]))
	for i, e := range g.adj[pos] {
		out[i] = g.names[e.to]
	}
	return out
}

type visit struct {
	node int
	dist float64
}

// dijkstra returns per-node distances and predecessors from source.
func (g *Graph) dijkstra(source int) ([]float64, []int) {
	dist := make([]float64, len(g.names))
	prev := make([]int, len(g.names))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[source] = 0

	queue := topk.New[visit](func(a, b visit) int { return cmp.Compare(a.dist, b.dist) })
	queue.Push(visit{node: source})

	for queue.Len() > 0 {
		cur, _ := queue.Pop()
		if cur.dist > dist[cur.node] {
			continue // stale entry
		}
		for _, e := range g.adj[cur.node] {
			nd := cur.dist + e.weight
			if nd < dist[e.to] {
				dist[e.to] = nd
				prev[e.to] = cur.node
				queue.Push(visit{node: e.to, dist: nd})
			}
		}
	}
	return dist, prev
}

func (g *Graph) lookup(field, id string) (int, error) {
	pos, ok := g.index[id]
	if !ok {
		return 0, errors.NewValidationError(field, fmt.Sprintf("node '%s' is not in the graph", id))
	}
	return pos, nil
}

// ShortestPaths returns the shortest distance from source to every node.
// Unreachable nodes map to +Inf.
func (g *Graph) ShortestPaths(source string) (map[string]float64, error) {
	src, err := g.lookup("source", source)
	if err != nil {
		return nil, err
	}

	dist, _ := g.dijkstra(src)
	out := make(map[string]float64, len(dist))
	for i, d := range dist {
		out[g.names[i]] = d
	}
	return out, nil
}

// Path returns the node sequence and total weight of a shortest path.
// When target is unreachable the path is empty and the distance +Inf.
func (g *Graph) Path(source, target string) ([]string, float64, error) {
	src, err := g.lookup("source", source)
	if err != nil {
		return nil, 0, err
	}
	dst, err := g.lookup("target", target)
	if err != nil {
		return nil, 0, err
	}

	dist, prev := g.dijkstra(src)
	if math.IsInf(dist[dst], 1) {
		return []string{}, dist[dst], nil
	}

	var reversed []string
	for at := dst; at != -1; at = prev[at] {
		reversed = append(reversed, g.names[at])
	}
	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path, dist[dst], nil
}

// BuildProximityGraph connects every pair of located items whose great-circle
// distance is at most thresholdKm with an undirected edge weighted by that
// distance. Items without a location become isolated nodes.
func BuildProximityGraph(items []model.Item, thresholdKm float64) (*Graph, error) {
	if math.IsNaN(thresholdKm) || thresholdKm < 0 {
		return nil, errors.NewValidationError("threshold_km", "must not be negative")
	}

	g := NewGraph()
	for _, item := range items {
		g.AddNode(item.ID)
	}
	for i := range items {
		if !items[i].HasLocation() {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if !items[j].HasLocation() {
				continue
			}
			d := haversine(*items[i].Location, *items[j].Location)
			if d <= thresholdKm {
				if err := g.AddUndirectedEdge(items[i].ID, items[j].ID, d); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

// Reachable is a node reached through the graph together with its path length.
type Reachable struct {
	ID         string
	DistanceKm float64
}

// NearestReachable returns up to k nodes reachable from source, closest first,
// excluding source itself. Ties are broken by node insertion order.
func (g *Graph) NearestReachable(source string, k int) ([]Reachable, error) {
	if k <= 0 {
		return nil, errors.NewValidationError("k", "must be positive")
	}
	src, err := g.lookup("source", source)
	if err != nil {
		return nil, err
	}

	dist, _ := g.dijkstra(src)
	type ranked struct {
		pos  int
		dist float64
	}
	candidates := make([]ranked, 0, len(dist))
	for i, d := range dist {
		if i == src || math.IsInf(d, 1) {
			continue
		}
		candidates = append(candidates, ranked{pos: i, dist: d})
	}

	best, err := topk.Select(candidates, k, func(a, b ranked) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Reachable, len(best))
	for i, r := range best {
		out[i] = Reachable{ID: g.names[r.pos], DistanceKm: r.dist}
	}
	return out, nil
}
