package coref

import (
	"math"

	"github.com/pkg/errors"

	"evcoref/nlp/types"
)

type DecodeMode int

const (
	// GoldConsistent only considers gold labels of gold edges.
	GoldConsistent DecodeMode = iota
	// Unconstrained scores every allowed label on every edge.
	Unconstrained
)

func (m DecodeMode) String() string {
	switch m {
	case GoldConsistent:
		return "gold-consistent"
	case Unconstrained:
		return "unconstrained"
	default:
		return "unknown"
	}
}

// DefaultRelations are the annotated non-root relation types an
// unconstrained decode scores. Each extended type is also scored in its
// inverse orientation.
var DefaultRelations = []types.RelationType{types.Coreference, types.After, types.Subevent}

var rootLabels = []types.RelationType{types.Root}

// BestFirstDecoder picks, for every node in document order, the single best
// scoring (antecedent key, dependent key, label) among all earlier nodes.
// Since every edge points backwards the result is a forest under the root.
type BestFirstDecoder struct {
	// Relations are the labels scored on non-root edges when unconstrained,
	// inverse orientations included.
	Relations  []types.RelationType
	Constraint JointConstraint
}

func NewBestFirstDecoder(relations ...types.RelationType) *BestFirstDecoder {
	if len(relations) == 0 {
		relations = DefaultRelations
	}
	return &BestFirstDecoder{Relations: types.WithInverses(relations), Constraint: NoJointConstraint{}}
}

func (d *BestFirstDecoder) Decode(g *MentionGraph, weights Weights, mode DecodeMode) (*MentionSubGraph, error) {
	return d.DecodePrefix(g, weights, mode, g.NumNodes())
}

// DecodePrefix decodes the nodes [1, limit).
func (d *BestFirstDecoder) DecodePrefix(g *MentionGraph, weights Weights, mode DecodeMode, limit int) (*MentionSubGraph, error) {
	if limit < 1 || limit > g.NumNodes() {
		return nil, errors.Wrapf(ErrOutOfRange, "prefix limit %d in graph of %d nodes", limit, g.NumNodes())
	}
	if mode != GoldConsistent && mode != Unconstrained {
		panic("Unknown decode mode")
	}
	constraint := d.Constraint
	if constraint == nil {
		constraint = NoJointConstraint{}
	}
	tree := NewMentionSubGraph(g, limit)
	for curr := 1; curr < limit; curr++ {
		var (
			bestEdge  *LabelledEdge
			bestLabel types.RelationType
			bestScore = math.Inf(-1)
		)
		currKeys := g.Keys(curr)
		for ant := 0; ant < curr; ant++ {
			edge := g.edge(curr, ant)
			for _, antKey := range g.Keys(ant) {
				for _, currKey := range currKeys {
					labelled := edge.LabelledEdge(antKey, currKey)
					if mode == GoldConsistent {
						adjust := func(label types.RelationType) float64 {
							return constraint.Adjustment(antKey, currKey, label)
						}
						label, score, ok := labelled.correctLabelScore(weights, adjust)
						if ok && score > bestScore {
							bestEdge, bestLabel, bestScore = labelled, label, score
						}
						continue
					}
					for _, label := range d.labels(labelled) {
						score := labelled.Score(weights, label) + constraint.Adjustment(antKey, currKey, label)
						if score > bestScore {
							bestEdge, bestLabel, bestScore = labelled, label, score
						}
					}
				}
			}
		}
		if bestEdge == nil {
			return nil, errors.Wrapf(ErrNoValidEdge, "node %d (%s decode)", curr, mode)
		}
		tree.AddEdge(bestEdge, bestLabel, bestScore)
	}
	return tree, nil
}

// labels are the candidate labels of an unconstrained decode.
func (d *BestFirstDecoder) labels(edge *LabelledEdge) []types.RelationType {
	if edge.Ant.IsRoot() {
		return rootLabels
	}
	return d.Relations
}
