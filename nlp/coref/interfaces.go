// Package coref resolves event coreference by decoding a latent tree over a
// mention graph whose edges are scored by a linear model.
package coref

import (
	"github.com/pkg/errors"

	"evcoref/alg/featurevector"
	"evcoref/nlp/types"
)

var (
	ErrOutOfRange    = errors.New("node index out of range")
	ErrNoValidEdge   = errors.New("no valid edge")
	ErrEmptyDocument = errors.New("empty document")
)

// FeatureExtractor computes the features of an edge between two typed keys.
// Both workspaces are initialized once per document before graph
// construction.
type FeatureExtractor interface {
	InitWorkspace(candidates []*types.MentionCandidate)
	InitDocumentWorkspace(doc *types.Document)
	Extract(ant, dep types.NodeKey) featurevector.Sparse
}

// Weights scores feature vectors per relation class. Class indices are
// relation type values.
type Weights interface {
	Score(features featurevector.Sparse, class int) float64
	AveragedScore(features featurevector.Sparse, class int) float64
	Update(features featurevector.Sparse, class int, amount float64)
	IncrementGeneration()
}
