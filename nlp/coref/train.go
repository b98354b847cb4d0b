package coref

import (
	"github.com/pkg/errors"

	"evcoref/alg/perceptron"
	"evcoref/nlp/types"
)

// TrainingInstance is a document with its candidates and gold annotation.
type TrainingInstance struct {
	Doc        *types.Document
	Candidates []*types.MentionCandidate
	Gold       *types.GoldAnnotation
}

var _ perceptron.Instance = &TrainingInstance{}

func NewTrainingInstance(doc *types.Document) (*TrainingInstance, error) {
	candidates, gold, err := doc.Annotate()
	if err != nil {
		return nil, err
	}
	return &TrainingInstance{Doc: doc, Candidates: candidates, Gold: gold}, nil
}

func (t *TrainingInstance) ID() string {
	return t.Doc.ID
}

// LatentDecoder decodes training instances for the online learner: the best
// gold-consistent tree and the unconstrained prediction, both under the
// current weights.
type LatentDecoder struct {
	Decoder   *BestFirstDecoder
	Extractor FeatureExtractor
}

var _ perceptron.LatentDecoder = &LatentDecoder{}

func (d *LatentDecoder) DecodeLatent(instance perceptron.Instance, m perceptron.Model) (perceptron.Structure, perceptron.Structure, error) {
	inst, ok := instance.(*TrainingInstance)
	if !ok {
		return nil, nil, errors.Errorf("unexpected instance type %T", instance)
	}
	weights, ok := m.(Weights)
	if !ok {
		return nil, nil, errors.Errorf("model %T cannot score graph edges", m)
	}
	if len(inst.Candidates) == 0 {
		return nil, nil, errors.Wrapf(ErrEmptyDocument, "document %s", inst.ID())
	}
	d.Extractor.InitWorkspace(inst.Candidates)
	d.Extractor.InitDocumentWorkspace(inst.Doc)
	g, err := NewTrainingGraph(inst.Candidates, inst.Gold, d.Extractor)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "document %s", inst.ID())
	}
	best, err := d.Decoder.Decode(g, weights, GoldConsistent)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "document %s", inst.ID())
	}
	predicted, err := d.Decoder.Decode(g, weights, Unconstrained)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "document %s", inst.ID())
	}
	return best, predicted, nil
}
