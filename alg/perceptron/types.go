package perceptron

import (
	"evcoref/alg/featurevector"
	"evcoref/util"
)

// Model is a linear scorer over per-class sparse features.
type Model interface {
	Score(features featurevector.Sparse, class int) float64
	Update(features featurevector.Sparse, class int, amount float64)
	IncrementGeneration()
}

type Instance interface {
	ID() string
}

// Structure is a decoded output: its score under the weights it was decoded
// with and the per-class features that produced that score.
type Structure interface {
	util.Equaler
	Score() float64
	Features() featurevector.Labelled
	// Loss counts the parts of this structure that disagree with gold.
	Loss(gold Structure) float64
}

// LatentDecoder decodes an instance twice under the same weights: the best
// structure consistent with the instance's (partial) annotation, and the
// unconstrained prediction.
type LatentDecoder interface {
	DecodeLatent(instance Instance, m Model) (best, predicted Structure, err error)
}

type SupervisedTrainer interface {
	Train(instances []Instance)
}
