package app

import (
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"evcoref/alg/model"
	"evcoref/alg/perceptron"
	"evcoref/nlp/coref"
	"evcoref/nlp/features"
	"evcoref/nlp/types"
	"evcoref/util"
)

func init() {
	gob.Register(&Serialization{})
}

const METRICS_NAMESPACE = "evcoref"

var (
	// file names
	configFile  string
	trainFile   string
	devFile     string
	input       string
	inputGold   string
	outClusters string
	modelFile   string
	metricsFile string

	// flag overrides of the config
	Iterations int
	Workers    int
	featureArg string
)

// Serialization is the persisted model: the weights, the feature spec they
// were trained with and both alphabets.
type Serialization struct {
	Weights     *model.WeightMatrixSerialized
	FeatureSpec string
	EFeatures   *util.EnumSet
	EClasses    *util.EnumSet
}

func NewSerialization(weights *model.WeightMatrix, spec string) *Serialization {
	return &Serialization{
		Weights:     weights.Serialize(),
		FeatureSpec: spec,
		EFeatures:   weights.FeatureAlphabet,
		EClasses:    weights.ClassAlphabet,
	}
}

// Model rebuilds the weight matrix around the stored alphabets.
func (s *Serialization) Model() (*model.WeightMatrix, error) {
	if s.Weights == nil || s.EFeatures == nil || s.EClasses == nil {
		return nil, errors.New("incomplete model")
	}
	if !s.EClasses.Equal(types.ClassAlphabet()) {
		return nil, errors.Errorf("model classes %v do not match relation types", s.EClasses.Index)
	}
	s.EFeatures.RebuildIndex()
	weights := &model.WeightMatrix{}
	weights.Deserialize(s.Weights)
	weights.FeatureAlphabet = s.EFeatures
	weights.ClassAlphabet = s.EClasses
	return weights, nil
}

// Extractor returns a frozen extractor over the stored feature alphabet.
func (s *Serialization) Extractor() (*features.Extractor, error) {
	extractor, err := features.NewExtractor(s.FeatureSpec, s.EFeatures)
	if err != nil {
		return nil, errors.Wrap(err, "stored feature spec")
	}
	extractor.Freeze()
	return extractor, nil
}

func WriteModel(file string, data *Serialization) error {
	return util.WriteFile(file, func(w io.Writer) error {
		if err := gob.NewEncoder(w).Encode(data); err != nil {
			return errors.Wrapf(err, "failed writing model to %s", file)
		}
		return nil
	})
}

func ReadModel(file string) (*Serialization, error) {
	data := &Serialization{}
	fObj, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading model from %s", file)
	}
	defer fObj.Close()
	reader := gob.NewDecoder(fObj)
	if err := reader.Decode(data); err != nil {
		return nil, errors.Wrapf(err, "failed decoding model from %s", file)
	}
	return data, nil
}

func logDigest(log *zap.Logger, msg, file string) {
	digest, err := util.FileDigest(file)
	if err != nil {
		log.Warn(msg, zap.String("file", file), zap.Error(err))
		return
	}
	log.Info(msg, zap.String("file", file), zap.String("md5", digest))
}

// StoredSpec returns the spec the model was trained with, warning when the
// configured one differs.
func StoredSpec(configured string, data *Serialization, log *zap.Logger) string {
	if configured != data.FeatureSpec {
		log.Warn("configured feature spec differs from the model's, using the model's",
			zap.String("configured", configured),
			zap.String("model", data.FeatureSpec))
	}
	return data.FeatureSpec
}

func VerifyExists(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return errors.Wrapf(err, "error accessing file %s", filename)
	}
	return nil
}

func VerifyFlags(cmd *commander.Command, required []string) error {
	for _, name := range required {
		f := cmd.Flag.Lookup(name)
		if f == nil || f.Value.String() == "" {
			cmd.Usage()
			return errors.Errorf("required flag %s not set", name)
		}
	}
	return nil
}

// SetupConfig loads the config file and applies the flags given on the
// command line.
func SetupConfig(cmd *commander.Command) (*Config, error) {
	conf, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	var flagErr error
	cmd.Flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "it":
			conf.Iterations = Iterations
		case "workers":
			conf.Workers = Workers
		case "f":
			names, err := features.ParseSpec(featureArg)
			if err != nil {
				flagErr = err
				return
			}
			conf.Features = names
		case "metrics":
			conf.MetricsFile = metricsFile
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func ConfigOut(log *zap.Logger, conf *Config) {
	log.Info("configuration",
		zap.Int("iterations", conf.Iterations),
		zap.Float64("maxStep", conf.MaxStep),
		zap.Float64("regularization", conf.Regularization),
		zap.Bool("averaged", conf.Averaged),
		zap.Bool("useAverage", conf.UseAverage),
		zap.Int("workers", conf.Workers),
		zap.String("features", conf.FeatureSpec()),
		zap.Strings("relations", conf.Relations))
}

func NewTrainer(conf *Config, decoder *coref.LatentDecoder, log *zap.Logger, metrics *perceptron.Metrics) *perceptron.PassiveAggressive {
	trainer := &perceptron.PassiveAggressive{
		Decoder:        decoder,
		Iterations:     conf.Iterations,
		MaxStep:        conf.MaxStep,
		Regularization: conf.Regularization,
		Log:            log,
		Metrics:        metrics,
	}
	if conf.Averaged {
		trainer.Updater = &perceptron.AveragedStrategy{}
	}
	return trainer
}

func Train(trainer *perceptron.PassiveAggressive, instances []perceptron.Instance, weights *model.WeightMatrix, log *zap.Logger) {
	trainer.Init(weights)
	start := time.Now()
	trainer.Train(instances)
	log.Info("training done",
		zap.Duration("took", time.Since(start)),
		zap.Int("updates", trainer.Updates),
		zap.Int("skipped", trainer.FailedInstances),
		zap.Int("features", weights.FeatureAlphabet.Len()))
	log.Debug("memory", util.MemoryFields()...)
}
