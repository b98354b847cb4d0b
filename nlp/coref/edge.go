package coref

import (
	"fmt"
	"math"
	"strings"

	"evcoref/alg/featurevector"
	"evcoref/nlp/types"
)

// LabelledEdge is one concrete edge between an antecedent key and a
// dependent key. It is gold for the relation types set in its labels; an
// edge with no labels can still be scored.
type LabelledEdge struct {
	Ant, Dep types.NodeKey

	graph    *MentionGraph
	labels   [types.NumRelations]bool
	numGold  int
	features featurevector.Sparse
}

func (e *LabelledEdge) addLabel(label types.RelationType) {
	if !e.labels[label] {
		e.labels[label] = true
		e.numGold++
	}
}

func (e *LabelledEdge) IsGold() bool {
	return e.numGold > 0
}

func (e *LabelledEdge) HasLabel(label types.RelationType) bool {
	return e.labels[label]
}

// GoldLabels lists the edge's gold relation types in enumeration order.
func (e *LabelledEdge) GoldLabels() []types.RelationType {
	if e.numGold == 0 {
		return nil
	}
	retval := make([]types.RelationType, 0, e.numGold)
	for _, r := range types.AllRelations {
		if e.labels[r] {
			retval = append(retval, r)
		}
	}
	return retval
}

// Features are extracted on first use and cached.
func (e *LabelledEdge) Features() featurevector.Sparse {
	if e.features == nil {
		e.features = e.graph.extractor.Extract(e.Ant, e.Dep)
	}
	return e.features
}

func (e *LabelledEdge) Score(weights Weights, label types.RelationType) float64 {
	if e.graph.useAverage {
		return weights.AveragedScore(e.Features(), int(label))
	}
	return weights.Score(e.Features(), int(label))
}

// CorrectLabelScore returns the best scoring gold label of the edge. The
// last return value is false for an edge with no gold label, or when no gold
// label has a comparable (non NaN) score.
func (e *LabelledEdge) CorrectLabelScore(weights Weights) (types.RelationType, float64, bool) {
	return e.correctLabelScore(weights, nil)
}

// correctLabelScore is CorrectLabelScore with each label's score shifted by
// adjust, if given. Ties keep the first gold label in class order.
func (e *LabelledEdge) correctLabelScore(weights Weights, adjust func(types.RelationType) float64) (types.RelationType, float64, bool) {
	if e.numGold == 0 {
		return types.Root, 0, false
	}
	var (
		best      types.RelationType
		bestScore = math.Inf(-1)
		found     bool
	)
	for _, r := range types.AllRelations {
		if !e.labels[r] {
			continue
		}
		s := e.Score(weights, r)
		if adjust != nil {
			s += adjust(r)
		}
		if s > bestScore || (!found && math.IsInf(s, -1)) {
			best, bestScore, found = r, s, true
		}
	}
	return best, bestScore, found
}

func (e *LabelledEdge) String() string {
	labels := make([]string, 0, e.numGold)
	for _, r := range e.GoldLabels() {
		labels = append(labels, r.String())
	}
	return fmt.Sprintf("%v->%v[%s]", e.Ant, e.Dep, strings.Join(labels, ","))
}

// MentionGraphEdge holds the labelled edges between one dependent node and
// one antecedent node, one slot per (antecedent key, dependent key) pair.
type MentionGraphEdge struct {
	Ant, Dep int

	graph    *MentionGraph
	numDep   int
	labelled []*LabelledEdge
}

func newMentionGraphEdge(g *MentionGraph, dep, ant int) *MentionGraphEdge {
	numAnt, numDep := len(g.Keys(ant)), len(g.Keys(dep))
	return &MentionGraphEdge{
		Ant:      ant,
		Dep:      dep,
		graph:    g,
		numDep:   numDep,
		labelled: make([]*LabelledEdge, numAnt*numDep),
	}
}

func (e *MentionGraphEdge) slot(antKey, depKey types.NodeKey) int {
	if antKey.Node() != e.Ant || depKey.Node() != e.Dep {
		panic(fmt.Sprintf("Keys %v -> %v do not belong to edge %d -> %d", antKey, depKey, e.Ant, e.Dep))
	}
	antIdx, depIdx := e.graph.keyIndex(antKey), e.graph.keyIndex(depKey)
	if antIdx < 0 || depIdx < 0 {
		panic(fmt.Sprintf("Unknown key in %v -> %v", antKey, depKey))
	}
	return antIdx*e.numDep + depIdx
}

// LabelledEdge returns the stored edge between the two keys, storing a new
// non-gold edge on first request so features are extracted once per pair.
func (e *MentionGraphEdge) LabelledEdge(antKey, depKey types.NodeKey) *LabelledEdge {
	i := e.slot(antKey, depKey)
	if e.labelled[i] == nil {
		e.labelled[i] = &LabelledEdge{Ant: antKey, Dep: depKey, graph: e.graph}
	}
	return e.labelled[i]
}

func (e *MentionGraphEdge) addRealEdge(antKey, depKey types.NodeKey, label types.RelationType) *LabelledEdge {
	edge := e.LabelledEdge(antKey, depKey)
	edge.addLabel(label)
	return edge
}

// RealLabelledEdges lists the gold labelled edges in key order.
func (e *MentionGraphEdge) RealLabelledEdges() []*LabelledEdge {
	var retval []*LabelledEdge
	for _, l := range e.labelled {
		if l != nil && l.IsGold() {
			retval = append(retval, l)
		}
	}
	return retval
}

func (e *MentionGraphEdge) String() string {
	gold := e.RealLabelledEdges()
	parts := make([]string, len(gold))
	for i, l := range gold {
		parts[i] = l.String()
	}
	return fmt.Sprintf("%d->%d{%s}", e.Ant, e.Dep, strings.Join(parts, " "))
}
