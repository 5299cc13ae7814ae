// Package pathfinder answers shortest-route queries over a distance table.
// Every row of the table is a directed edge weighted by its length in meters,
// so routes can only hop between places closer than the table's threshold.
package pathfinder

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"strings"

	"city-distance/internal/calculator"
	"city-distance/internal/dataset"
	"city-distance/internal/models"
	"city-distance/internal/points"
)

var (
	ErrUnknownNode = errors.New("unknown place")
	ErrNoPath      = errors.New("no path")
)

// Node is a place of the graph. Two rows name the same node only when name
// and coordinates all match.
type Node struct {
	Name string
	Loc  models.Coordinate
}

type edge struct {
	to     int
	meters float64
}

type Graph struct {
	nodes  []Node
	index  map[Node]int
	byName map[string][]int
	adj    [][]edge
	edges  int
}

func NewGraph() *Graph {
	return &Graph{
		index:  make(map[Node]int),
		byName: make(map[string][]int),
	}
}

// FromRecords builds a graph holding one edge per record.
func FromRecords(records []models.DistanceRecord) *Graph {
	g := NewGraph()
	for _, r := range records {
		g.AddEdge(r)
	}
	return g
}

// Load builds a graph from a distance table on disk. sheet selects the
// workbook sheet and is ignored for CSV.
func Load(path, sheet string) (*Graph, error) {
	records, err := dataset.LoadResults(path, sheet)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

func (g *Graph) node(n Node) int {
	if id, ok := g.index[n]; ok {
		return id
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.adj = append(g.adj, nil)
	g.index[n] = id
	g.byName[n.Name] = append(g.byName[n.Name], id)
	return id
}

func (g *Graph) AddEdge(r models.DistanceRecord) {
	from := g.node(Node{Name: r.FromName, Loc: models.Coordinate{Lat: r.FromLat, Lon: r.FromLon}})
	to := g.node(Node{Name: r.ToName, Loc: models.Coordinate{Lat: r.ToLat, Lon: r.ToLon}})
	g.adj[from] = append(g.adj[from], edge{to: to, meters: r.Distance})
	g.edges++
}

func (g *Graph) Nodes() int { return len(g.nodes) }
func (g *Graph) Edges() int { return g.edges }

// Resolve finds the node a query refers to: an exact name first (the earliest
// seen when names repeat), otherwise a "lat,lon" pair snapped to the closest node.
func (g *Graph) Resolve(query string) (Node, error) {
	q := strings.TrimSpace(query)
	if ids := g.byName[q]; len(ids) > 0 {
		return g.nodes[ids[0]], nil
	}

	loc, ok := parseLatLon(q)
	if !ok || len(g.nodes) == 0 {
		return Node{}, fmt.Errorf("%w: %q", ErrUnknownNode, query)
	}

	best, bestMeters := 0, math.Inf(1)
	for id, n := range g.nodes {
		if d := calculator.Distance(loc, n.Loc); d < bestMeters {
			best, bestMeters = id, d
		}
	}
	return g.nodes[best], nil
}

func parseLatLon(s string) (models.Coordinate, bool) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return models.Coordinate{}, false
	}
	lat, err := points.ParseCoord(latStr)
	if err != nil {
		return models.Coordinate{}, false
	}
	lon, err := points.ParseCoord(lonStr)
	if err != nil {
		return models.Coordinate{}, false
	}
	loc := models.Coordinate{Lat: lat, Lon: lon}
	return loc, loc.Valid()
}

// Path is a route in travel order.
type Path struct {
	Nodes  []Node
	Meters float64
}

type queueItem struct {
	node   int
	meters float64
}

// queue is a min-heap on distance, ties broken by node id so results do not
// depend on heap internals.
type queue []queueItem

var _ heap.Interface = (*queue)(nil)

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].meters != q[j].meters {
		return q[i].meters < q[j].meters
	}
	return q[i].node < q[j].node
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra from one node to another. ErrNoPath is returned
// when the target cannot be reached.
func (g *Graph) ShortestPath(from, to Node) (Path, error) {
	src, ok := g.index[from]
	if !ok {
		return Path{}, fmt.Errorf("%w: %q", ErrUnknownNode, from.Name)
	}
	dst, ok := g.index[to]
	if !ok {
		return Path{}, fmt.Errorf("%w: %q", ErrUnknownNode, to.Name)
	}

	dist := make([]float64, len(g.nodes))
	prev := make([]int, len(g.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[src] = 0

	q := &queue{{node: src}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(queueItem)
		if cur.meters > dist[cur.node] {
			continue
		}
		if cur.node == dst {
			break
		}
		for _, e := range g.adj[cur.node] {
			if d := cur.meters + e.meters; d < dist[e.to] {
				dist[e.to] = d
				prev[e.to] = cur.node
				heap.Push(q, queueItem{node: e.to, meters: d})
			}
		}
	}

	if math.IsInf(dist[dst], 1) {
		return Path{}, fmt.Errorf("%w from %q to %q", ErrNoPath, from.Name, to.Name)
	}

	var ids []int
	for id := dst; id != -1; id = prev[id] {
		ids = append(ids, id)
	}
	path := Path{Nodes: make([]Node, len(ids)), Meters: dist[dst]}
	for i, id := range ids {
		path.Nodes[len(ids)-1-i] = g.nodes[id]
	}
	return path, nil
}

// Find resolves both queries and returns the shortest path between them.
func (g *Graph) Find(start, end string) (Path, error) {
	from, err := g.Resolve(start)
	if err != nil {
		return Path{}, err
	}
	to, err := g.Resolve(end)
	if err != nil {
		return Path{}, err
	}
	return g.ShortestPath(from, to)
}
