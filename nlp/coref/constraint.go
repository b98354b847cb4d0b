package coref

import "evcoref/nlp/types"

// JointConstraint adds a potential to every candidate edge score during
// decoding, for decoders that couple the tree with other structures.
type JointConstraint interface {
	Adjustment(ant, dep types.NodeKey, label types.RelationType) float64
}

// NoJointConstraint leaves scores unchanged.
type NoJointConstraint struct{}

func (NoJointConstraint) Adjustment(ant, dep types.NodeKey, label types.RelationType) float64 {
	return 0
}
