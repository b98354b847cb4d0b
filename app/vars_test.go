package app

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"evcoref/alg/featurevector"
	"evcoref/alg/model"
	"evcoref/alg/perceptron"
	"evcoref/nlp/coref"
	"evcoref/nlp/features"
	"evcoref/nlp/types"
	"evcoref/util"
)

func TEST_DOC() *types.Document {
	return &types.Document{
		ID: "doc1",
		Mentions: []*types.Mention{
			{ID: "a1", Begin: 0, End: 6, Sentence: 0, Text: "attack", Lemma: "attack", Type: "Attack", Event: "e1"},
			{ID: "r1", Begin: 20, End: 26, Sentence: 1, Text: "arrest", Lemma: "arrest", Type: "Arrest"},
			{ID: "a2", Begin: 40, End: 46, Sentence: 2, Text: "attack", Lemma: "attack", Type: "Attack", Event: "e1"},
		},
	}
}

func TestModelRoundTrip(t *testing.T) {
	alphabet := util.NewEnumSetOf("f0", "f1", "f2")
	weights := model.NewWeightMatrix(types.ClassAlphabet(), alphabet)
	weights.Update(featurevector.Sparse{0: 1, 2: -2}, int(types.Coreference), 0.5)
	weights.IncrementGeneration()
	weights.Update(featurevector.Sparse{1: 1}, int(types.After), 1)
	weights.IncrementGeneration()

	file := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, WriteModel(file, NewSerialization(weights, "bias;trigger")))
	data, err := ReadModel(file)
	require.NoError(t, err)
	assert.Equal(t, "bias;trigger", data.FeatureSpec)
	assert.True(t, data.EFeatures.Equal(alphabet))

	loaded, err := data.Model()
	require.NoError(t, err)
	vec := featurevector.Sparse{0: 1, 1: 1, 2: 1}
	for _, rel := range types.AllRelations {
		class := int(rel)
		assert.InDelta(t, weights.Score(vec, class), loaded.Score(vec, class), 1e-12, rel.String())
		assert.InDelta(t, weights.AveragedScore(vec, class), loaded.AveragedScore(vec, class), 1e-12, rel.String())
	}
	assert.Equal(t, 2, loaded.Generation)

	extractor, err := data.Extractor()
	require.NoError(t, err)
	assert.True(t, extractor.EFeatures.Frozen)
	assert.Equal(t, "bias;trigger", extractor.Spec)
}

func TestReadModelErrors(t *testing.T) {
	_, err := ReadModel(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)

	weights := model.NewWeightMatrix(types.ClassAlphabet(), util.NewEnumSetOf("f0"))
	err = WriteModel(filepath.Join(t.TempDir(), "missing", "model.gob"), NewSerialization(weights, "bias"))
	assert.Error(t, err)

	data := &Serialization{}
	_, err = data.Model()
	assert.Error(t, err)

	data = NewSerialization(model.NewWeightMatrix(util.NewEnumSetOf("Root", "Coreference"), util.NewEnumSet(1)), "bias")
	_, err = data.Model()
	assert.ErrorContains(t, err, "do not match")
}

type discardCloser struct {
	closeErr error
}

func (discardCloser) Write(p []byte) (int, error) { return len(p), nil }
func (d discardCloser) Close() error              { return d.closeErr }

func TestWriteModelCloseError(t *testing.T) {
	create := util.CreateFile
	util.CreateFile = func(string) (io.WriteCloser, error) {
		return discardCloser{closeErr: errors.New("stale handle")}, nil
	}
	defer func() { util.CreateFile = create }()

	weights := model.NewWeightMatrix(types.ClassAlphabet(), util.NewEnumSetOf("f0"))
	err := WriteModel("model.gob", NewSerialization(weights, "bias"))
	assert.ErrorContains(t, err, "closing model.gob: stale handle")
}

func TestStoredSpecWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)
	data := &Serialization{FeatureSpec: "bias"}

	assert.Equal(t, "bias", StoredSpec("bias", data, log))
	assert.Equal(t, 0, logs.Len())

	assert.Equal(t, "bias", StoredSpec("bias;trigger", data, log))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "bias;trigger", logs.All()[0].ContextMap()["configured"])
}

func TestTrainWriteResolve(t *testing.T) {
	conf := DefaultConfig()
	conf.Iterations = 5
	conf.Averaged = false
	conf.UseAverage = false
	conf.MaxStep = 0
	log := zap.NewNop()

	extractor, err := features.NewExtractor(conf.FeatureSpec(), nil)
	require.NoError(t, err)
	instances := Instances([]*types.Document{TEST_DOC()}, log)
	require.Len(t, instances, 1)
	trainer := NewTrainer(conf, &coref.LatentDecoder{Decoder: coref.NewBestFirstDecoder(), Extractor: extractor}, log, nil)
	weights := model.NewWeightMatrix(types.ClassAlphabet(), extractor.EFeatures)
	Train(trainer, instances, weights, log)
	assert.Equal(t, 2, trainer.Updates)

	file := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, WriteModel(file, NewSerialization(weights, extractor.Spec)))
	data, err := ReadModel(file)
	require.NoError(t, err)

	conf.MaxStep = 1
	resolver, err := NewResolver(data, conf, log, nil)
	require.NoError(t, err)
	results, err := resolver.Resolve(context.Background(), []*types.Document{TEST_DOC()})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, [][]string{{"a1", "a2"}}, results[0].Clusters)

	clusters := map[string][][]string{"doc1": results[0].Clusters}
	score := ScoreClusters(clusters, []*types.Document{TEST_DOC()})
	assert.Equal(t, 1.0, score.Pairwise.F1())
	assert.Equal(t, 1.0, score.MUC.F1())
}

func TestAveragedTrainer(t *testing.T) {
	conf := DefaultConfig()
	extractor, err := features.NewExtractor("bias", nil)
	require.NoError(t, err)
	trainer := NewTrainer(conf, &coref.LatentDecoder{Decoder: coref.NewBestFirstDecoder(), Extractor: extractor}, zap.NewNop(), nil)
	assert.IsType(t, &perceptron.AveragedStrategy{}, trainer.Updater)
	assert.Equal(t, conf.Iterations, trainer.Iterations)
}

func TestScoreClustersMissingDocument(t *testing.T) {
	score := ScoreClusters(map[string][][]string{}, []*types.Document{TEST_DOC()})
	assert.Equal(t, 1, score.Pairwise.FN)
	assert.Equal(t, 0.0, score.MUC.Recall())
	assert.Equal(t, 0.0, score.Pairwise.ExactMatch())
	assert.Equal(t, map[string]int{"missing": 1}, score.Pairwise.Errors().ByType())
}

func TestLogScore(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	doc := TEST_DOC()
	other := TEST_DOC()
	other.ID = "doc2"
	score := ScoreClusters(map[string][][]string{
		"doc1": {{"a1", "a2"}},
		"doc2": {{"a1", "r1"}},
	}, []*types.Document{doc, other})
	logScore(zap.New(core), score, 2)

	require.Equal(t, 1, logs.FilterMessage("evaluation").Len())
	fields := logs.FilterMessage("evaluation").All()[0].ContextMap()
	assert.Equal(t, 0.5, fields["exactMatch"])
	assert.Equal(t, map[string]int{"missing": 1, "spurious": 1}, fields["errors"])

	linkErrors := logs.FilterMessage("link error").All()
	require.Len(t, linkErrors, 2)
	assert.Equal(t, "spurious", linkErrors[0].ContextMap()["class"])
	assert.Equal(t, "spurious link a1-r1", linkErrors[0].ContextMap()["error"])
	assert.Equal(t, "missing link a1-a2", linkErrors[1].ContextMap()["error"])
}
