package coref

import (
	"fmt"
	"sort"
	"strings"

	"evcoref/alg/featurevector"
	"evcoref/alg/graph"
	"evcoref/alg/perceptron"
	"evcoref/nlp/types"
	"evcoref/util"
)

// SubGraphEdge is the parent choice of one node.
type SubGraphEdge struct {
	Edge  *LabelledEdge
	Label types.RelationType
	Score float64
}

func (e *SubGraphEdge) Ant() types.NodeKey {
	return e.Edge.Ant
}

func (e *SubGraphEdge) Dep() types.NodeKey {
	return e.Edge.Dep
}

// MentionSubGraph is a decoded latent tree: one parent edge for each node in
// [1, limit).
type MentionSubGraph struct {
	graph   *MentionGraph
	limit   int
	parents []*SubGraphEdge

	chains [][]types.NodeKey
}

var _ perceptron.Structure = &MentionSubGraph{}

func NewMentionSubGraph(g *MentionGraph, limit int) *MentionSubGraph {
	return &MentionSubGraph{graph: g, limit: limit, parents: make([]*SubGraphEdge, limit)}
}

// AddEdge records edge as the parent of its dependent node.
func (s *MentionSubGraph) AddEdge(edge *LabelledEdge, label types.RelationType, score float64) {
	dep := edge.Dep.Node()
	if dep <= 0 || dep >= s.limit {
		panic(fmt.Sprintf("Edge %v outside sub graph of limit %d", edge, s.limit))
	}
	s.parents[dep] = &SubGraphEdge{Edge: edge, Label: label, Score: score}
	s.chains = nil
}

func (s *MentionSubGraph) Limit() int {
	return s.limit
}

// Parent is the chosen edge of node, nil for the root or an undecoded node.
func (s *MentionSubGraph) Parent(node int) *SubGraphEdge {
	return s.parents[node]
}

// Edges lists the parent edges in dependent order.
func (s *MentionSubGraph) Edges() []*SubGraphEdge {
	retval := make([]*SubGraphEdge, 0, s.limit)
	for _, p := range s.parents {
		if p != nil {
			retval = append(retval, p)
		}
	}
	return retval
}

// ResolveCoreference computes the coreference chains as the connected
// components of the selected Coreference edges, ignoring direction. Each
// chain keeps one key per span, the first seen in dependent order, and only
// chains over at least two spans are kept.
func (s *MentionSubGraph) ResolveCoreference() [][]types.NodeKey {
	var (
		edges    []graph.BasicDirectedEdge
		nodeKeys = make(map[int]types.NodeKey)
	)
	see := func(k types.NodeKey) {
		if _, exists := nodeKeys[k.Node()]; !exists {
			nodeKeys[k.Node()] = k
		}
	}
	for _, p := range s.Edges() {
		if p.Label != types.Coreference {
			continue
		}
		see(p.Ant())
		see(p.Dep())
		edges = append(edges, graph.BasicDirectedEdge{p.Dep().Node(), p.Ant().Node()})
	}
	var chains [][]types.NodeKey
	for _, component := range graph.Components(s.limit, edges) {
		if len(component) < 2 {
			continue
		}
		chain := make([]types.NodeKey, len(component))
		for i, node := range component {
			chain[i] = nodeKeys[node]
		}
		chains = append(chains, chain)
	}
	s.chains = chains
	return chains
}

// CorefChains returns the resolved chains, resolving on first use.
func (s *MentionSubGraph) CorefChains() [][]types.NodeKey {
	if s.chains == nil {
		return s.ResolveCoreference()
	}
	return s.chains
}

// Relations maps each selected extended relation type to its adjacency
// from governor key to dependent keys. An inverse label is reported as its
// base type with governor and dependent swapped back.
func (s *MentionSubGraph) Relations() map[types.RelationType]map[types.NodeKey][]types.NodeKey {
	retval := make(map[types.RelationType]map[types.NodeKey][]types.NodeKey)
	for _, p := range s.Edges() {
		if !p.Label.Extended() {
			continue
		}
		rel, gov, dep := p.Label, p.Ant(), p.Dep()
		if rel.IsInverse() {
			rel, gov, dep = rel.Base(), dep, gov
		}
		adjacency, exists := retval[rel]
		if !exists {
			adjacency = make(map[types.NodeKey][]types.NodeKey)
			retval[rel] = adjacency
		}
		adjacency[gov] = append(adjacency[gov], dep)
	}
	return retval
}

// Score sums the decode scores of the parent edges.
func (s *MentionSubGraph) Score() float64 {
	var total float64
	for _, p := range s.Edges() {
		total += p.Score
	}
	return total
}

// Features sums the edge features per relation class.
func (s *MentionSubGraph) Features() featurevector.Labelled {
	retval := make(featurevector.Labelled)
	for _, p := range s.Edges() {
		retval.AddTo(int(p.Label), p.Edge.Features(), 1.0)
	}
	return retval
}

// Loss counts the nodes whose parent choice differs from gold's.
func (s *MentionSubGraph) Loss(gold perceptron.Structure) float64 {
	other, ok := gold.(*MentionSubGraph)
	if !ok {
		panic("Loss against a non sub graph structure")
	}
	limit := s.limit
	if other.limit > limit {
		limit = other.limit
	}
	var loss float64
	for node := 1; node < limit; node++ {
		if !sameParent(s.parentAt(node), other.parentAt(node)) {
			loss += 1
		}
	}
	return loss
}

func (s *MentionSubGraph) parentAt(node int) *SubGraphEdge {
	if node >= s.limit {
		return nil
	}
	return s.parents[node]
}

func sameParent(a, b *SubGraphEdge) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Ant() == b.Ant() && a.Dep() == b.Dep() && a.Label == b.Label
}

func (s *MentionSubGraph) Equal(otherEq util.Equaler) bool {
	other, ok := otherEq.(*MentionSubGraph)
	if !ok || other.limit != s.limit {
		return false
	}
	return s.Loss(other) == 0
}

func (s *MentionSubGraph) String() string {
	parts := make([]string, 0, s.limit)
	for _, p := range s.Edges() {
		parts = append(parts, fmt.Sprintf("%v-%s->%v", p.Ant(), p.Label, p.Dep()))
	}
	return strings.Join(parts, " ")
}

// ChainString renders chains sorted for stable comparison in logs.
func ChainString(chains [][]types.NodeKey) string {
	parts := make([]string, len(chains))
	for i, chain := range chains {
		keys := make([]string, len(chain))
		for j, k := range chain {
			keys[j] = k.String()
		}
		parts[i] = "{" + strings.Join(keys, ",") + "}"
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
