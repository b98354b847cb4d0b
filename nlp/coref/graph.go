package coref

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"evcoref/nlp/types"
)

// TypedNode is a (node index, mention type) member of a gold chain.
type TypedNode struct {
	Node int
	Type string
}

func (t TypedNode) Key() types.NodeKey {
	return types.NodeKey{Candidate: t.Node - 1, Type: t.Type}
}

func (t TypedNode) less(other TypedNode) bool {
	if t.Node != other.Node {
		return t.Node < other.Node
	}
	return t.Type < other.Type
}

var rootKeys = []types.NodeKey{types.RootKey}

// MentionGraph is the graph over a document's candidates plus the virtual
// root at node 0. Node i > 0 is candidate i-1. Edges always point from a
// dependent back to an earlier antecedent and are stored in a triangular
// arena, created on first access.
type MentionGraph struct {
	candidates []*types.MentionCandidate
	extractor  FeatureExtractor
	useAverage bool
	training   bool
	numNodes   int

	edges []*MentionGraphEdge

	typedCorefChains  [][]TypedNode
	resolvedRelations map[types.RelationType]map[types.NodeKey][]types.NodeKey
}

func newGraph(candidates []*types.MentionCandidate, extractor FeatureExtractor) *MentionGraph {
	numNodes := len(candidates) + 1
	return &MentionGraph{
		candidates:        candidates,
		extractor:         extractor,
		numNodes:          numNodes,
		edges:             make([]*MentionGraphEdge, numNodes*(numNodes-1)/2),
		resolvedRelations: make(map[types.RelationType]map[types.NodeKey][]types.NodeKey),
	}
}

// NewMentionGraph builds an inference graph with no gold information.
func NewMentionGraph(candidates []*types.MentionCandidate, extractor FeatureExtractor, useAverage bool) *MentionGraph {
	g := newGraph(candidates, extractor)
	g.useAverage = useAverage
	return g
}

// NewTrainingGraph builds a graph with the gold edges of the annotation
// materialized. Training graphs always score with the current weights.
func NewTrainingGraph(candidates []*types.MentionCandidate, gold *types.GoldAnnotation, extractor FeatureExtractor) (*MentionGraph, error) {
	g := newGraph(candidates, extractor)
	g.training = true
	if err := g.materializeGold(gold); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *MentionGraph) NumNodes() int {
	return g.numNodes
}

func (g *MentionGraph) Candidates() []*types.MentionCandidate {
	return g.candidates
}

func (g *MentionGraph) IsTraining() bool {
	return g.training
}

// Keys lists the typed keys of a node; the root has only the root key.
func (g *MentionGraph) Keys(node int) []types.NodeKey {
	if node == 0 {
		return rootKeys
	}
	return g.candidates[node-1].Keys()
}

func (g *MentionGraph) keyIndex(k types.NodeKey) int {
	if k.IsRoot() {
		if k == types.RootKey {
			return 0
		}
		return -1
	}
	if k.Candidate >= len(g.candidates) {
		return -1
	}
	return g.candidates[k.Candidate].KeyIndex(k.Type)
}

func edgeIndex(dep, ant int) int {
	return dep*(dep-1)/2 + ant
}

func (g *MentionGraph) edge(dep, ant int) *MentionGraphEdge {
	i := edgeIndex(dep, ant)
	if g.edges[i] == nil {
		g.edges[i] = newMentionGraphEdge(g, dep, ant)
	}
	return g.edges[i]
}

// EdgeBetween returns the edge from dep back to ant, creating it on first
// access.
func (g *MentionGraph) EdgeBetween(dep, ant int) (*MentionGraphEdge, error) {
	if dep < 0 || dep >= g.numNodes || ant < 0 || ant >= dep {
		return nil, errors.Wrapf(ErrOutOfRange, "edge %d -> %d in graph of %d nodes", ant, dep, g.numNodes)
	}
	return g.edge(dep, ant), nil
}

// TypedCorefChains are the gold clusters with two or more members, each
// sorted by node then type, ordered by their first member.
func (g *MentionGraph) TypedCorefChains() [][]TypedNode {
	return g.typedCorefChains
}

// ResolvedRelations maps each extended relation type to its gold adjacency
// from governor key to dependent keys, propagated through event clusters.
func (g *MentionGraph) ResolvedRelations() map[types.RelationType]map[types.NodeKey][]types.NodeKey {
	return g.resolvedRelations
}

func (g *MentionGraph) materializeGold(gold *types.GoldAnnotation) error {
	if len(gold.Candidate2Labelled) != len(g.candidates) {
		return errors.Errorf("gold annotation covers %d candidates, graph has %d",
			len(gold.Candidate2Labelled), len(g.candidates))
	}
	clusters, err := g.groupEventClusters(gold)
	if err != nil {
		return err
	}
	g.typedCorefChains = sortedCorefChains(clusters)
	g.storeCoreferenceEdges()
	if err := g.storeRelations(gold, clusters); err != nil {
		return err
	}
	g.linkToRoot()
	return nil
}

// groupEventClusters collects the typed nodes of every event. A multi-tagged
// span contributes one entry per type.
func (g *MentionGraph) groupEventClusters(gold *types.GoldAnnotation) (map[int][]TypedNode, error) {
	clusters := make(map[int][]TypedNode)
	for node := 1; node < g.numNodes; node++ {
		cand := g.candidates[node-1]
		for _, labelled := range gold.Candidate2Labelled[node-1] {
			event, exists := gold.Labelled2Event[labelled]
			if !exists {
				continue
			}
			typ := gold.LabelledTypes[labelled]
			if cand.KeyIndex(typ) < 0 {
				return nil, errors.Errorf("gold type %q is not a key of candidate %d", typ, cand.Index)
			}
			member := TypedNode{Node: node, Type: typ}
			if !containsTypedNode(clusters[event], member) {
				clusters[event] = append(clusters[event], member)
			}
		}
	}
	for _, members := range clusters {
		sort.Slice(members, func(i, j int) bool { return members[i].less(members[j]) })
	}
	return clusters, nil
}

func containsTypedNode(members []TypedNode, t TypedNode) bool {
	for _, m := range members {
		if m == t {
			return true
		}
	}
	return false
}

func sortedEvents(clusters map[int][]TypedNode) []int {
	events := make([]int, 0, len(clusters))
	for event := range clusters {
		events = append(events, event)
	}
	sort.Ints(events)
	return events
}

func sortedCorefChains(clusters map[int][]TypedNode) [][]TypedNode {
	var chains [][]TypedNode
	for _, event := range sortedEvents(clusters) {
		if members := clusters[event]; len(members) > 1 {
			chains = append(chains, members)
		}
	}
	sort.SliceStable(chains, func(i, j int) bool { return chains[i][0].less(chains[j][0]) })
	return chains
}

// storeCoreferenceEdges links every chain member to every later member, so
// any earlier member of the cluster may serve as antecedent.
func (g *MentionGraph) storeCoreferenceEdges() {
	for _, chain := range g.typedCorefChains {
		for i := 0; i < len(chain)-1; i++ {
			for j := i + 1; j < len(chain); j++ {
				if chain[i].Node == chain[j].Node {
					continue
				}
				g.edge(chain[j].Node, chain[i].Node).addRealEdge(chain[i].Key(), chain[j].Key(), types.Coreference)
			}
		}
	}
}

type eventRelation struct {
	gov, dep int
	typ      types.RelationType
}

// storeRelations lifts mention relations to their events and back down to
// every member pair of the two clusters. The gold edge of a member pair runs
// from the later node back to the earlier one; when the governor is the later
// node the edge carries the inverse label.
func (g *MentionGraph) storeRelations(gold *types.GoldAnnotation, clusters map[int][]TypedNode) error {
	var (
		eventRelations []eventRelation
		seen           = make(map[eventRelation]bool)
	)
	for _, rel := range gold.Relations {
		govEvent, govExists := gold.Labelled2Event[rel.Gov]
		depEvent, depExists := gold.Labelled2Event[rel.Dep]
		if !govExists || !depExists {
			return errors.Errorf("relation %v between mentions without events", rel)
		}
		er := eventRelation{govEvent, depEvent, rel.Type}
		if !seen[er] {
			seen[er] = true
			eventRelations = append(eventRelations, er)
		}
	}

	for _, er := range eventRelations {
		adjacency, exists := g.resolvedRelations[er.typ]
		if !exists {
			adjacency = make(map[types.NodeKey][]types.NodeKey)
			g.resolvedRelations[er.typ] = adjacency
		}
		for _, gov := range clusters[er.gov] {
			for _, dep := range clusters[er.dep] {
				if gov.Node == dep.Node {
					continue
				}
				govKey, depKey := gov.Key(), dep.Key()
				if !containsKey(adjacency[govKey], depKey) {
					adjacency[govKey] = append(adjacency[govKey], depKey)
				}
				if gov.Node < dep.Node {
					g.edge(dep.Node, gov.Node).addRealEdge(govKey, depKey, er.typ)
				} else {
					g.edge(gov.Node, dep.Node).addRealEdge(depKey, govKey, er.typ.Inverse())
				}
			}
		}
	}
	for _, adjacency := range g.resolvedRelations {
		for _, deps := range adjacency {
			sort.Slice(deps, func(i, j int) bool { return deps[i].Less(deps[j]) })
		}
	}
	return nil
}

func containsKey(keys []types.NodeKey, k types.NodeKey) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}

// linkToRoot gives every typed key not covered by a gold edge to some
// antecedent a Root gold edge.
func (g *MentionGraph) linkToRoot() {
	for curr := 1; curr < g.numNodes; curr++ {
		keys := g.Keys(curr)
		covered := make([]bool, len(keys))
		for ant := 0; ant < curr; ant++ {
			e := g.edges[edgeIndex(curr, ant)]
			if e == nil {
				continue
			}
			for _, l := range e.RealLabelledEdges() {
				covered[g.keyIndex(l.Dep)] = true
			}
		}
		for i, key := range keys {
			if !covered[i] {
				g.edge(curr, 0).addRealEdge(types.RootKey, key, types.Root)
			}
		}
	}
}

func (g *MentionGraph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph of %d nodes:\n", g.numNodes)
	for _, e := range g.edges {
		if e != nil && len(e.RealLabelledEdges()) > 0 {
			sb.WriteString(e.String())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
