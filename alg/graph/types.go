package graph

import "sort"

// BasicDirectedEdge is a (From, To) pair of vertex indices.
type BasicDirectedEdge [2]int

func (e BasicDirectedEdge) From() int {
	return e[0]
}

func (e BasicDirectedEdge) To() int {
	return e[1]
}

// DisjointSet is a union-find forest over the vertices [0, n).
type DisjointSet struct {
	parent []int
	rank   []int
}

func NewDisjointSet(n int) *DisjointSet {
	d := &DisjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *DisjointSet) Find(x int) int {
	for d.parent[x] != x {
		// path halving
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *DisjointSet) Union(x, y int) {
	rx, ry := d.Find(x), d.Find(y)
	if rx == ry {
		return
	}
	switch {
	case d.rank[rx] < d.rank[ry]:
		d.parent[rx] = ry
	case d.rank[rx] > d.rank[ry]:
		d.parent[ry] = rx
	default:
		d.parent[ry] = rx
		d.rank[rx]++
	}
}

func (d *DisjointSet) Len() int {
	return len(d.parent)
}

// Components returns the connected components of the undirected graph formed
// by edges over the vertices [0, n), restricted to vertices touched by some
// edge. Each component is sorted, and components are ordered by their
// smallest vertex.
func Components(n int, edges []BasicDirectedEdge) [][]int {
	set := NewDisjointSet(n)
	touched := make([]bool, n)
	for _, e := range edges {
		set.Union(e.From(), e.To())
		touched[e.From()], touched[e.To()] = true, true
	}
	byRoot := make(map[int][]int)
	for v := 0; v < n; v++ {
		if !touched[v] {
			continue
		}
		root := set.Find(v)
		byRoot[root] = append(byRoot[root], v)
	}
	retval := make([][]int, 0, len(byRoot))
	for _, comp := range byRoot {
		retval = append(retval, comp)
	}
	sort.Slice(retval, func(i, j int) bool { return retval[i][0] < retval[j][0] })
	return retval
}
