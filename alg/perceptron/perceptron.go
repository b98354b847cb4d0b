package perceptron

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNonFinite = errors.New("non-finite score")

type StopCondition func(curIt, numIt, generations int, model Model) bool

// PassiveAggressive is an online latent structured learner. For every
// instance whose prediction differs from the best annotation-consistent
// structure the weights move by the smallest step that separates the two by
// the loss, capped at MaxStep.
type PassiveAggressive struct {
	Decoder        LatentDecoder
	Updater        UpdateStrategy
	Iterations     int
	MaxStep        float64
	Regularization float64
	Model          Model
	Log            *zap.Logger
	Metrics        *Metrics

	FailedInstances int
	Updates         int

	Continue StopCondition
}

var _ SupervisedTrainer = &PassiveAggressive{}

func (m *PassiveAggressive) Init(newModel Model) {
	m.Model = newModel
	if m.Updater == nil {
		m.Updater = &TrivialStrategy{}
	}
	if m.Log == nil {
		m.Log = zap.NewNop()
	}
	m.FailedInstances, m.Updates = 0, 0
	m.Updater.Init(m.Model, m.Iterations)
}

func DefaultStopCondition(iteration, iterations, generations int, model Model) bool {
	return iteration < iterations
}

func (m *PassiveAggressive) Train(instances []Instance) {
	if m.Model == nil {
		panic("Model not initialized")
	}
	if m.Continue == nil {
		m.Continue = DefaultStopCondition
	}
	var generations int
	for i := 0; m.Continue(i, m.Iterations, generations, m.Model); i++ {
		itLog := m.Log.With(zap.Int("iteration", i))
		start := time.Now()
		var updated, failed int
		for j, instance := range instances {
			instLog := itLog.With(zap.Int("instance", j), zap.String("doc", instance.ID()))
			status, err := m.trainInstance(instance, instLog)
			switch status {
			case StatusSkipped:
				failed++
				m.FailedInstances++
				instLog.Warn("skipped", zap.Error(err))
			case StatusUpdated:
				updated++
			}
			m.Metrics.observeInstance(status)
			generations += 1
			m.Updater.Update(m.Model)
		}
		itLog.Info("iteration done",
			zap.Int("instances", len(instances)),
			zap.Int("updated", updated),
			zap.Int("skipped", failed),
			zap.Duration("took", time.Since(start)))
	}
	m.Model = m.Updater.Finalize(m.Model)
}

const (
	StatusCorrect = "correct"
	StatusUpdated = "updated"
	StatusSkipped = "skipped"
)

func (m *PassiveAggressive) trainInstance(instance Instance, log *zap.Logger) (status string, err error) {
	best, predicted, err := m.Decoder.DecodeLatent(instance, m.Model)
	if err != nil {
		return StatusSkipped, err
	}
	if best == nil || predicted == nil {
		return StatusSkipped, errors.New("decoder returned no structure")
	}
	if best.Equal(predicted) {
		log.Debug("success")
		return StatusCorrect, nil
	}
	loss := predicted.Loss(best)
	margin := predicted.Score() - best.Score()
	diff := best.Features().Subtract(predicted.Features())
	normSq := diff.NormSquared()
	if !isFinite(margin) || !isFinite(normSq) {
		return StatusSkipped, errors.Wrapf(ErrNonFinite, "margin %v norm %v", margin, normSq)
	}
	if normSq+m.Regularization <= 0 {
		// identical features under different structures
		log.Debug("zero feature difference", zap.Float64("loss", loss))
		return StatusCorrect, nil
	}
	step := PassiveAggressiveStep(margin, loss, normSq, m.Regularization, m.MaxStep)
	if !isFinite(step) {
		return StatusSkipped, errors.Wrapf(ErrNonFinite, "step %v", step)
	}
	if step <= 0 {
		return StatusCorrect, nil
	}
	for _, class := range diff.Classes() {
		m.Model.Update(diff[class], class, step)
	}
	m.Updates++
	m.Metrics.observeUpdate(loss, step)
	log.Debug("failed",
		zap.Float64("loss", loss),
		zap.Float64("margin", margin),
		zap.Float64("step", step),
		zap.Stringer("diff", diff))
	return StatusUpdated, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// PassiveAggressiveStep is the PA-I step size for the given margin violation.
func PassiveAggressiveStep(margin, loss, normSq, regularization, maxStep float64) float64 {
	denom := normSq + regularization
	if denom <= 0 {
		return 0
	}
	step := (margin + loss) / denom
	if maxStep > 0 && step > maxStep {
		step = maxStep
	}
	return step
}

type UpdateStrategy interface {
	Init(m Model, iterations int)
	Update(model Model)
	Finalize(m Model) Model
}

type TrivialStrategy struct{}

func (u *TrivialStrategy) Init(m Model, iterations int) {

}

func (u *TrivialStrategy) Update(m Model) {

}

func (u *TrivialStrategy) Finalize(m Model) Model {
	return m
}

// AveragedStrategy advances the model generation after every instance so
// averaged scores integrate over all instances seen.
type AveragedStrategy struct {
	P, N int
}

func (u *AveragedStrategy) Init(m Model, iterations int) {
	// explicitly reset u.N in case of reuse
	u.N = 0
	u.P = iterations
}

func (u *AveragedStrategy) Update(m Model) {
	m.IncrementGeneration()
	u.N += 1
}

func (u *AveragedStrategy) Finalize(m Model) Model {
	return m
}
