package app

import (
	"context"
	"os"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"evcoref/nlp/coref"
	"evcoref/nlp/features"
	"evcoref/nlp/format/corefjson"
)

// NewResolver loads a model bundle into a resolver with a frozen alphabet.
func NewResolver(data *Serialization, conf *Config, log *zap.Logger, metrics *coref.ResolveMetrics) (*coref.Resolver, error) {
	weights, err := data.Model()
	if err != nil {
		return nil, err
	}
	StoredSpec(conf.FeatureSpec(), data, log)
	extractor, err := data.Extractor()
	if err != nil {
		return nil, err
	}
	relations, err := conf.RelationTypes()
	if err != nil {
		return nil, err
	}
	return &coref.Resolver{
		Decoder:      coref.NewBestFirstDecoder(relations...),
		NewExtractor: func() coref.FeatureExtractor { return extractor.Fork() },
		Weights:      weights,
		UseAverage:   conf.UseAverage,
		Workers:      conf.Workers,
		Log:          log,
		Metrics:      metrics,
	}, nil
}

func ResolveDocs(cmd *commander.Command, args []string) error {
	if err := VerifyFlags(cmd, []string{"in", "m"}); err != nil {
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
	for _, file := range []string{input, modelFile} {
		if err := VerifyExists(file); err != nil {
			return err
		}
	}

	data, err := ReadModel(modelFile)
	if err != nil {
		return err
	}
	logDigest(log, "read model", modelFile)
	reg := prometheus.NewRegistry()
	resolver, err := NewResolver(data, conf, log, coref.NewResolveMetrics(reg, METRICS_NAMESPACE))
	if err != nil {
		return err
	}
	docs, err := corefjson.ReadFile(input)
	if err != nil {
		return errors.Wrapf(err, "reading %s", input)
	}
	start := time.Now()
	results, err := resolver.Resolve(context.Background(), docs)
	if err != nil {
		return err
	}
	log.Info("resolved documents", zap.Int("documents", len(docs)), zap.Duration("took", time.Since(start)))

	if outClusters == "" {
		err = corefjson.WriteClusters(os.Stdout, results)
	} else {
		err = corefjson.WriteClustersFile(outClusters, results)
	}
	if err != nil {
		return errors.Wrap(err, "writing clusters")
	}
	return writeMetrics(conf, reg, log)
}

func ResolveCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       ResolveDocs,
		UsageLine: "resolve <file options> [arguments]",
		Short:     "resolve event coreference with a trained model",
		Long: `
resolve event coreference in documents with a trained model

	$ ./evcoref resolve -in <docs.jsonl> -m <model file> [-out <clusters.jsonl>] [-c <config.yaml>] [options]

Clusters are written as json lines to -out, or to standard output.
`,
		Flag: *flag.NewFlagSet("resolve", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&input, "in", "", "Input documents (json lines)")
	cmd.Flag.StringVar(&modelFile, "m", "", "Model file")
	cmd.Flag.StringVar(&outClusters, "out", "", "Output clusters file")
	cmd.Flag.StringVar(&configFile, "c", "", "Config file (yaml)")
	cmd.Flag.IntVar(&Workers, "workers", 4, "Documents resolved in parallel")
	cmd.Flag.StringVar(&featureArg, "f", features.DEFAULT_SPEC, "Expected feature spec; the model's spec wins")
	cmd.Flag.StringVar(&metricsFile, "metrics", "", "Write resolution metrics to this file")
	return cmd
}
