package app

import (
	"fmt"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"evcoref/eval"
	"evcoref/nlp/format/corefjson"
	"evcoref/nlp/types"
)

// ScoreClusters scores resolved clusters, keyed by document id, against the
// gold clusters of docs. A document missing from clusters counts as all
// singletons.
func ScoreClusters(clusters map[string][][]string, docs []*types.Document) *eval.CorpusScore {
	score := &eval.CorpusScore{}
	for _, doc := range docs {
		score.Add(clusters[doc.ID], doc.GoldClusters())
	}
	return score
}

func EvalClusters(cmd *commander.Command, args []string) error {
	if err := VerifyFlags(cmd, []string{"in", "gold"}); err != nil {
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

	clusters, err := corefjson.ReadClustersFile(input)
	if err != nil {
		return errors.Wrapf(err, "reading %s", input)
	}
	gold, err := corefjson.ReadFile(inputGold)
	if err != nil {
		return errors.Wrapf(err, "reading %s", inputGold)
	}
	var unknown int
	known := make(map[string]bool, len(gold))
	for _, doc := range gold {
		known[doc.ID] = true
	}
	for id := range clusters {
		if !known[id] {
			unknown++
		}
	}
	if unknown > 0 {
		log.Warn("clusters for documents not in the gold file", zap.Int("documents", unknown))
	}
	score := ScoreClusters(clusters, gold)
	logScore(log, score, len(gold))
	fmt.Println(score.String())
	return nil
}

// logScore logs the corpus scores, the pairwise error counts per class and
// every single link error at debug level.
func logScore(log *zap.Logger, score *eval.CorpusScore, documents int) {
	errs := score.Pairwise.Errors()
	log.Info("evaluation",
		zap.Int("documents", documents),
		zap.Float64("pairwiseF1", score.Pairwise.F1()),
		zap.Float64("mucF1", score.MUC.F1()),
		zap.Float64("exactMatch", score.Pairwise.ExactMatch()),
		zap.Any("errors", errs.ByType()))
	if log.Core().Enabled(zap.DebugLevel) {
		for _, e := range errs {
			log.Debug("link error", zap.String("class", e.Class()), zap.Stringer("error", e))
		}
	}
}

func EvalCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       EvalClusters,
		UsageLine: "eval <file options>",
		Short:     "score resolved clusters against gold documents",
		Long: `
score resolved clusters against gold documents (pairwise links and MUC)

	$ ./evcoref eval -in <clusters.jsonl> -gold <docs.jsonl>

`,
		Flag: *flag.NewFlagSet("eval", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&input, "in", "", "Resolved clusters (json lines)")
	cmd.Flag.StringVar(&inputGold, "gold", "", "Gold documents (json lines)")
	cmd.Flag.StringVar(&configFile, "c", "", "Config file (yaml)")
	return cmd
}
