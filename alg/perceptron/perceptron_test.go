package perceptron

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"evcoref/alg/featurevector"
	"evcoref/alg/model"
	"evcoref/util"
)

type toyInstance struct {
	id      string
	options []featurevector.Sparse
	gold    int
	fail    bool
}

func (i *toyInstance) ID() string { return i.id }

type toyChoice struct {
	idx   int
	score float64
	feats featurevector.Labelled
}

func (c *toyChoice) Equal(other util.Equaler) bool {
	o, ok := other.(*toyChoice)
	return ok && o.idx == c.idx
}

func (c *toyChoice) Score() float64                   { return c.score }
func (c *toyChoice) Features() featurevector.Labelled { return c.feats }

func (c *toyChoice) Loss(gold Structure) float64 {
	if c.Equal(gold) {
		return 0
	}
	return 1
}

type toyDecoder struct{}

func (toyDecoder) choice(inst *toyInstance, idx int, m Model) *toyChoice {
	feats := make(featurevector.Labelled)
	feats.AddTo(0, inst.options[idx], 1)
	return &toyChoice{idx: idx, score: m.Score(inst.options[idx], 0), feats: feats}
}

func (d toyDecoder) DecodeLatent(instance Instance, m Model) (Structure, Structure, error) {
	inst := instance.(*toyInstance)
	if inst.fail {
		return nil, nil, errors.New("no valid edge")
	}
	bestIdx, bestScore := -1, math.Inf(-1)
	for i, opt := range inst.options {
		if s := m.Score(opt, 0); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	return d.choice(inst, inst.gold, m), d.choice(inst, bestIdx, m), nil
}

// fixedDecoder returns the same pair of structures for every instance.
type fixedDecoder struct {
	best, predicted *toyChoice
}

func (d fixedDecoder) DecodeLatent(Instance, Model) (Structure, Structure, error) {
	return d.best, d.predicted, nil
}

func classVec(vec featurevector.Sparse) featurevector.Labelled {
	return featurevector.Labelled{0: vec}
}

func newToyModel() *model.WeightMatrix {
	return model.NewWeightMatrix(util.NewEnumSetOf("Coreference"), util.NewEnumSetOf("a", "b"))
}

func toyData() []Instance {
	return []Instance{&toyInstance{
		id:      "doc1",
		options: []featurevector.Sparse{{0: 1}, {1: 1}},
		gold:    1,
	}}
}

func TestPassiveAggressiveStep(t *testing.T) {
	assert.Equal(t, 0.5, PassiveAggressiveStep(0, 1, 2, 0, 0))
	assert.Equal(t, 0.25, PassiveAggressiveStep(0, 1, 2, 0, 0.25))
	assert.Equal(t, 0.25, PassiveAggressiveStep(0, 1, 2, 2, 0))
	assert.Equal(t, 0.0, PassiveAggressiveStep(1, 1, 0, 0, 0))
}

func TestPassiveAggressiveTrain(t *testing.T) {
	w := newToyModel()
	pa := &PassiveAggressive{Decoder: toyDecoder{}, Iterations: 3}
	pa.Init(w)
	pa.Train(toyData())

	assert.Equal(t, 1, pa.Updates)
	assert.Equal(t, 0, pa.FailedInstances)
	assert.Equal(t, 0.5, w.Score(featurevector.Sparse{1: 1}, 0))
	assert.Equal(t, -0.5, w.Score(featurevector.Sparse{0: 1}, 0))
	assert.Equal(t, 0, w.Generation)
}

func TestPassiveAggressiveMaxStep(t *testing.T) {
	w := newToyModel()
	pa := &PassiveAggressive{Decoder: toyDecoder{}, Iterations: 1, MaxStep: 0.25}
	pa.Init(w)
	pa.Train(toyData())
	assert.Equal(t, 0.25, w.Score(featurevector.Sparse{1: 1}, 0))
}

func TestPassiveAggressiveSkipsFailures(t *testing.T) {
	w := newToyModel()
	reg := prometheus.NewRegistry()
	pa := &PassiveAggressive{
		Decoder:    toyDecoder{},
		Iterations: 2,
		Updater:    &AveragedStrategy{},
		Metrics:    NewMetrics(reg, "test"),
	}
	pa.Init(w)
	data := append(toyData(), &toyInstance{id: "broken", fail: true})
	pa.Train(data)

	assert.Equal(t, 2, pa.FailedInstances)
	assert.Equal(t, 1, pa.Updates)
	// averaged strategy advances once per instance, failures included
	assert.Equal(t, 4, w.Generation)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := make(map[string]float64)
	for _, family := range families {
		if family.GetName() != "test_train_instances_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			counts[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, counts[StatusSkipped])
	assert.Equal(t, 1.0, counts[StatusUpdated])
	assert.Equal(t, 1.0, counts[StatusCorrect])
}

func TestStopCondition(t *testing.T) {
	w := newToyModel()
	var seen []int
	pa := &PassiveAggressive{
		Decoder:    toyDecoder{},
		Iterations: 10,
		Continue: func(curIt, numIt, generations int, m Model) bool {
			seen = append(seen, generations)
			return curIt < 2
		},
	}
	pa.Init(w)
	pa.Train(toyData())
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestTrainWithoutModelPanics(t *testing.T) {
	pa := &PassiveAggressive{Decoder: toyDecoder{}, Iterations: 1}
	assert.Panics(t, func() { pa.Train(toyData()) })
}

func TestPassiveAggressiveNonFinite(t *testing.T) {
	gold := func(score float64) *toyChoice {
		return &toyChoice{idx: 1, score: score, feats: classVec(featurevector.Sparse{1: 1})}
	}
	wrong := func(score float64, vec featurevector.Sparse) *toyChoice {
		return &toyChoice{idx: 0, score: score, feats: classVec(vec)}
	}
	for name, decoder := range map[string]fixedDecoder{
		"inf score":      {gold(0), wrong(math.Inf(1), featurevector.Sparse{0: 1})},
		"nan score":      {gold(0), wrong(math.NaN(), featurevector.Sparse{0: 1})},
		"gold -inf":      {gold(math.Inf(-1)), wrong(0, featurevector.Sparse{0: 1})},
		"nan feature":    {gold(0), wrong(0, featurevector.Sparse{0: math.NaN()})},
		"inf feature":    {gold(0), wrong(0, featurevector.Sparse{0: math.Inf(1)})},
		"overflown step": {&toyChoice{idx: 1, feats: classVec(featurevector.Sparse{1: 1e-150})}, wrong(math.MaxFloat64, nil)},
	} {
		core, logs := observer.New(zap.WarnLevel)
		w := newToyModel()
		pa := &PassiveAggressive{Decoder: decoder, Iterations: 1, Log: zap.New(core)}
		pa.Init(w)
		pa.Train(toyData())

		assert.Equal(t, 1, pa.FailedInstances, name)
		assert.Equal(t, 0, pa.Updates, name)
		assert.Equal(t, 0.0, w.Score(featurevector.Sparse{0: 1, 1: 1}, 0), name)
		assert.Equal(t, 0, w.Mat[0].Len(), name)
		require.Equal(t, 1, logs.FilterMessage("skipped").Len(), name)
		assert.Contains(t, logs.All()[0].ContextMap()["error"], ErrNonFinite.Error(), name)

		_, err := pa.trainInstance(toyData()[0], zap.NewNop())
		assert.ErrorIs(t, err, ErrNonFinite, name)
	}
}
