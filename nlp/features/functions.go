package features

import (
	"fmt"
	"strings"

	"evcoref/nlp/types"
)

var (
	sentenceThresholds = []int{0, 1, 3, 5}
	mentionThresholds  = []int{0, 1, 3, 5}
)

func formatName(group, value string) string {
	return group + "_" + value
}

// thresholded names the first threshold d falls under, or the overflow bucket.
func thresholded(group string, d int, thresholds []int) string {
	for _, t := range thresholds {
		if d <= t {
			return formatName(group, fmt.Sprintf("i<=%d", t))
		}
	}
	return formatName(group, fmt.Sprintf("i>%d", thresholds[len(thresholds)-1]))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func biasPair(ws *workspace, ant, dep *types.MentionCandidate, antKey, depKey types.NodeKey, add adder) {
	add("Bias")
}

func biasRoot(ws *workspace, dep *types.MentionCandidate, depKey types.NodeKey, add adder) {
	add("RootBias")
}

func distancePair(ws *workspace, ant, dep *types.MentionCandidate, antKey, depKey types.NodeKey, add adder) {
	if ant.Sentence == 0 && dep.Sentence == 1 {
		add("TitleAndFirstSent")
	}
	add(thresholded("SentenceDistance", abs(dep.Sentence-ant.Sentence), sentenceThresholds))
	add(thresholded("MentionDistance", abs(dep.Index-ant.Index)-1, mentionThresholds))
}

func distanceRoot(ws *workspace, dep *types.MentionCandidate, depKey types.NodeKey, add adder) {
	add(thresholded("RootSentence", dep.Sentence, sentenceThresholds))
	add(formatName("RootDocType", ws.docType))
}

func lemma(c *types.MentionCandidate) string {
	switch {
	case c.Lemma != "":
		return strings.ToLower(c.Lemma)
	case c.Head != "":
		return strings.ToLower(c.Head)
	default:
		return strings.ToLower(c.Text)
	}
}

func headwordPair(ws *workspace, ant, dep *types.MentionCandidate, antKey, depKey types.NodeKey, add adder) {
	a, d := lemma(ant), lemma(dep)
	if a == d {
		add("HeadLemmaMatch")
	}
	add(formatName("HeadLemmaPair", a+"_"+d))
}

func headwordRoot(ws *workspace, dep *types.MentionCandidate, depKey types.NodeKey, add adder) {
	add(formatName("RootHeadLemma", lemma(dep)))
}

func typePair(ws *workspace, ant, dep *types.MentionCandidate, antKey, depKey types.NodeKey, add adder) {
	if antKey.Type == depKey.Type {
		add("MentionTypeMatch")
	}
	add(formatName("MentionTypePair", antKey.Type+"_"+depKey.Type))
}

func typeRoot(ws *workspace, dep *types.MentionCandidate, depKey types.NodeKey, add adder) {
	add(formatName("RootMentionType", depKey.Type))
}

func realisPair(ws *workspace, ant, dep *types.MentionCandidate, antKey, depKey types.NodeKey, add adder) {
	if ant.Realis == "" || dep.Realis == "" {
		return
	}
	if ant.Realis == dep.Realis {
		add("RealisMatch")
	}
	add(formatName("RealisPair", ant.Realis+"_"+dep.Realis))
}

func realisRoot(ws *workspace, dep *types.MentionCandidate, depKey types.NodeKey, add adder) {
	if dep.Realis != "" {
		add(formatName("RootRealis", dep.Realis))
	}
}

func triggerPair(ws *workspace, ant, dep *types.MentionCandidate, antKey, depKey types.NodeKey, add adder) {
	if strings.EqualFold(ant.Text, dep.Text) {
		add("TriggerMatch")
	}
}
