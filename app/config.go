package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"evcoref/nlp/features"
	"evcoref/nlp/types"
)

const ENV_PREFIX = "EVCOREF_"

var validate = validator.New()

type Config struct {
	Iterations     int      `yaml:"iterations" validate:"min=1"`
	MaxStep        float64  `yaml:"maxStep" validate:"gt=0"`
	Regularization float64  `yaml:"regularization" validate:"gte=0"`
	Averaged       bool     `yaml:"averaged"`
	UseAverage     bool     `yaml:"useAverage"`
	Workers        int      `yaml:"workers" validate:"min=1,max=256"`
	Features       []string `yaml:"features" validate:"required,min=1,dive,required"`
	Relations      []string `yaml:"relations" validate:"dive,oneof=Coreference After Subevent"`
	LogLevel       string   `yaml:"logLevel" validate:"oneof=debug info warn error"`
	Development    bool     `yaml:"development"`
	MetricsFile    string   `yaml:"metricsFile"`
}

func DefaultConfig() *Config {
	names, _ := features.ParseSpec(features.DEFAULT_SPEC)
	return &Config{
		Iterations:     10,
		MaxStep:        1.0,
		Regularization: 0,
		Averaged:       true,
		UseAverage:     true,
		Workers:        4,
		Features:       names,
		Relations:      []string{"Coreference", "After", "Subevent"},
		LogLevel:       "info",
	}
}

// LoadConfig overlays the yaml file (if any) on the defaults, then the
// environment (a .env file in the working directory is loaded first when
// present), and validates the result.
func LoadConfig(file string) (*Config, error) {
	conf := DefaultConfig()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "failed reading config")
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, errors.Wrapf(err, "failed parsing config %s", file)
		}
	}
	// a missing .env is not an error
	_ = godotenv.Load()
	if err := conf.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var err error
	get := func(name string) (string, bool) {
		return lookup(ENV_PREFIX + name)
	}
	if v, ok := get("ITERATIONS"); ok {
		if c.Iterations, err = strconv.Atoi(v); err != nil {
			return errors.Wrapf(err, "%sITERATIONS", ENV_PREFIX)
		}
	}
	if v, ok := get("MAX_STEP"); ok {
		if c.MaxStep, err = strconv.ParseFloat(v, 64); err != nil {
			return errors.Wrapf(err, "%sMAX_STEP", ENV_PREFIX)
		}
	}
	if v, ok := get("REGULARIZATION"); ok {
		if c.Regularization, err = strconv.ParseFloat(v, 64); err != nil {
			return errors.Wrapf(err, "%sREGULARIZATION", ENV_PREFIX)
		}
	}
	if v, ok := get("AVERAGED"); ok {
		if c.Averaged, err = strconv.ParseBool(v); err != nil {
			return errors.Wrapf(err, "%sAVERAGED", ENV_PREFIX)
		}
	}
	if v, ok := get("USE_AVERAGE"); ok {
		if c.UseAverage, err = strconv.ParseBool(v); err != nil {
			return errors.Wrapf(err, "%sUSE_AVERAGE", ENV_PREFIX)
		}
	}
	if v, ok := get("WORKERS"); ok {
		if c.Workers, err = strconv.Atoi(v); err != nil {
			return errors.Wrapf(err, "%sWORKERS", ENV_PREFIX)
		}
	}
	if v, ok := get("FEATURES"); ok {
		names, err := features.ParseSpec(v)
		if err != nil {
			return errors.Wrapf(err, "%sFEATURES", ENV_PREFIX)
		}
		c.Features = names
	}
	if v, ok := get("RELATIONS"); ok {
		c.Relations = splitList(v)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := get("DEVELOPMENT"); ok {
		if c.Development, err = strconv.ParseBool(v); err != nil {
			return errors.Wrapf(err, "%sDEVELOPMENT", ENV_PREFIX)
		}
	}
	if v, ok := get("METRICS_FILE"); ok {
		c.MetricsFile = v
	}
	return nil
}

func splitList(s string) []string {
	var retval []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			retval = append(retval, part)
		}
	}
	return retval
}

// Validate checks the struct tags, then that every feature is known.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, len(fieldErrors))
			for i, e := range fieldErrors {
				msgs[i] = fmt.Sprintf("%s failed %s %s", e.Namespace(), e.Tag(), e.Param())
			}
			return errors.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "invalid config")
	}
	if _, err := features.ParseSpec(c.FeatureSpec()); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

func (c *Config) FeatureSpec() string {
	return strings.Join(c.Features, ";")
}

func (c *Config) RelationTypes() ([]types.RelationType, error) {
	return types.ParseRelations(c.Relations)
}
