package app

import (
	"context"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"evcoref/alg/model"
	"evcoref/alg/perceptron"
	"evcoref/eval"
	"evcoref/nlp/coref"
	"evcoref/nlp/features"
	"evcoref/nlp/format/corefjson"
	"evcoref/nlp/types"
)

// Instances annotates the training documents. Documents whose annotation
// cannot be read are logged and left out.
func Instances(docs []*types.Document, log *zap.Logger) []perceptron.Instance {
	instances := make([]perceptron.Instance, 0, len(docs))
	for _, doc := range docs {
		inst, err := coref.NewTrainingInstance(doc)
		if err != nil {
			log.Warn("skipping training document", zap.String("doc", doc.ID), zap.Error(err))
			continue
		}
		instances = append(instances, inst)
	}
	return instances
}

// MakeEvalStopCondition scores the dev documents with the current weights
// after every iteration and stops after the configured iterations.
func MakeEvalStopCondition(dev []*types.Document, resolver *coref.Resolver, extractor *features.Extractor, log *zap.Logger) perceptron.StopCondition {
	return func(curIt, numIt, generations int, m perceptron.Model) bool {
		if curIt > 0 && len(dev) > 0 {
			score, err := evaluate(dev, resolver, extractor)
			if err != nil {
				log.Warn("dev evaluation failed", zap.Int("iteration", curIt), zap.Error(err))
			} else {
				log.Info("dev evaluation",
					zap.Int("iteration", curIt),
					zap.Int("generations", generations),
					zap.Float64("pairwiseF1", score.Pairwise.F1()),
					zap.Float64("mucF1", score.MUC.F1()))
			}
		}
		return curIt < numIt
	}
}

func evaluate(dev []*types.Document, resolver *coref.Resolver, extractor *features.Extractor) (*eval.CorpusScore, error) {
	// dev-only features would grow the alphabet without ever being trained
	extractor.Freeze()
	defer extractor.Thaw()
	results, err := resolver.Resolve(context.Background(), dev)
	if err != nil {
		return nil, err
	}
	score := &eval.CorpusScore{}
	for i, doc := range dev {
		score.Add(results[i].Clusters, doc.GoldClusters())
	}
	return score, nil
}

func TrainModel(cmd *commander.Command, args []string) error {
	if err := VerifyFlags(cmd, []string{"train", "m"}); err != nil {
		return err
	}
	conf, err := SetupConfig(cmd)
	if err != nil {
		return err
	}
	log, err := NewLogger(conf)
	if err != nil {
		return err
	}
	defer log.Sync()
	ConfigOut(log, conf)
	log.Info("data", zap.String("train", trainFile), zap.String("dev", devFile), zap.String("model", modelFile))

	relations, err := conf.RelationTypes()
	if err != nil {
		return err
	}
	extractor, err := features.NewExtractor(conf.FeatureSpec(), nil)
	if err != nil {
		return err
	}

	docs, err := corefjson.ReadFile(trainFile)
	if err != nil {
		return errors.Wrapf(err, "reading %s", trainFile)
	}
	instances := Instances(docs, log)
	log.Info("read training documents", zap.Int("documents", len(docs)), zap.Int("instances", len(instances)))

	reg := prometheus.NewRegistry()
	decoder := coref.NewBestFirstDecoder(relations...)
	trainer := NewTrainer(conf, &coref.LatentDecoder{Decoder: decoder, Extractor: extractor}, log, perceptron.NewMetrics(reg, METRICS_NAMESPACE))

	weights := model.NewWeightMatrix(types.ClassAlphabet(), extractor.EFeatures)
	if devFile != "" {
		dev, err := corefjson.ReadFile(devFile)
		if err != nil {
			return errors.Wrapf(err, "reading %s", devFile)
		}
		resolver := &coref.Resolver{
			Decoder:      decoder,
			NewExtractor: func() coref.FeatureExtractor { return extractor.Fork() },
			Weights:      weights,
			UseAverage:   conf.UseAverage,
			Workers:      conf.Workers,
			Log:          log,
		}
		trainer.Continue = MakeEvalStopCondition(dev, resolver, extractor, log)
	}
	Train(trainer, instances, weights, log)

	if err := WriteModel(modelFile, NewSerialization(weights, extractor.Spec)); err != nil {
		return err
	}
	logDigest(log, "wrote model", modelFile)
	return writeMetrics(conf, reg, log)
}

func writeMetrics(conf *Config, reg *prometheus.Registry, log *zap.Logger) error {
	if conf.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(conf.MetricsFile, reg); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", conf.MetricsFile)
	}
	log.Info("wrote metrics", zap.String("file", conf.MetricsFile))
	return nil
}

func TrainCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       TrainModel,
		UsageLine: "train <file options> [arguments]",
		Short:     "train an event coreference model",
		Long: `
train an event coreference model from annotated documents

	$ ./evcoref train -train <docs.jsonl> -m <model file> [-dev <docs.jsonl>] [-c <config.yaml>] [options]

`,
		Flag: *flag.NewFlagSet("train", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&trainFile, "train", "", "Training documents (json lines)")
	cmd.Flag.StringVar(&devFile, "dev", "", "Optional dev documents scored after every iteration")
	cmd.Flag.StringVar(&modelFile, "m", "", "Output model file")
	cmd.Flag.StringVar(&configFile, "c", "", "Config file (yaml)")
	cmd.Flag.IntVar(&Iterations, "it", 10, "Number of training iterations")
	cmd.Flag.StringVar(&featureArg, "f", features.DEFAULT_SPEC, "Feature spec")
	cmd.Flag.StringVar(&metricsFile, "metrics", "", "Write training metrics to this file")
	return cmd
}
