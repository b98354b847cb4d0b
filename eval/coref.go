package eval

import (
	"fmt"
	"sort"
	"strings"
)

type LinkError struct {
	A, B    string
	Missing bool
}

func (e *LinkError) String() string {
	return fmt.Sprintf("%s link %s-%s", e.Class(), e.A, e.B)
}

func (e *LinkError) Class() string {
	if e.Missing {
		return "missing"
	}
	return "spurious"
}

type link [2]string

func links(clusters [][]string) map[link]bool {
	retval := make(map[link]bool)
	for _, cluster := range clusters {
		for i := 0; i < len(cluster); i++ {
			for j := i + 1; j < len(cluster); j++ {
				a, b := cluster[i], cluster[j]
				if a > b {
					a, b = b, a
				}
				retval[link{a, b}] = true
			}
		}
	}
	return retval
}

func sortedLinks(set map[link]bool) []link {
	retval := make([]link, 0, len(set))
	for l := range set {
		retval = append(retval, l)
	}
	sort.Slice(retval, func(i, j int) bool {
		if retval[i][0] != retval[j][0] {
			return retval[i][0] < retval[j][0]
		}
		return retval[i][1] < retval[j][1]
	})
	return retval
}

// Pairwise scores the coreference links implied by the clusters: a link is
// any unordered pair of mentions in the same cluster.
func Pairwise(test, condition [][]string) *Result {
	testLinks, goldLinks := links(test), links(condition)
	result := &Result{}
	for _, l := range sortedLinks(testLinks) {
		if goldLinks[l] {
			result.TP++
		} else {
			result.FP++
			result.Errors = append(result.Errors, &LinkError{A: l[0], B: l[1]})
		}
	}
	for _, l := range sortedLinks(goldLinks) {
		if !testLinks[l] {
			result.FN++
			result.Errors = append(result.Errors, &LinkError{A: l[0], B: l[1], Missing: true})
		}
	}
	return result
}

// LinkScore accumulates the separate recall and precision fractions of a
// link based metric such as MUC.
type LinkScore struct {
	RecallNum, RecallDen       int
	PrecisionNum, PrecisionDen int
}

func (s *LinkScore) Add(other *LinkScore) {
	s.RecallNum += other.RecallNum
	s.RecallDen += other.RecallDen
	s.PrecisionNum += other.PrecisionNum
	s.PrecisionDen += other.PrecisionDen
}

func (s *LinkScore) Recall() float64 {
	return Recall(s.RecallNum, s.RecallDen)
}

func (s *LinkScore) Precision() float64 {
	return Precision(s.PrecisionNum, s.PrecisionDen)
}

func (s *LinkScore) F1() float64 {
	return F1(s.Precision(), s.Recall())
}

func (s *LinkScore) String() string {
	return fmt.Sprintf("P %.4f R %.4f F1 %.4f", s.Precision(), s.Recall(), s.F1())
}

// mucFraction counts, over the key clusters, the links kept by the response
// partition and the links needed to connect each key cluster. A mention
// absent from the response is its own partition.
func mucFraction(key, response [][]string) (int, int) {
	owner := make(map[string]int)
	for i, cluster := range response {
		for _, m := range cluster {
			owner[m] = i
		}
	}
	var num, den int
	for _, cluster := range key {
		if len(cluster) == 0 {
			continue
		}
		partitions := make(map[int]bool)
		var unowned int
		for _, m := range cluster {
			if i, exists := owner[m]; exists {
				partitions[i] = true
			} else {
				unowned++
			}
		}
		num += len(cluster) - len(partitions) - unowned
		den += len(cluster) - 1
	}
	return num, den
}

// MUC is the link based MUC score of test clusters against gold clusters.
func MUC(test, condition [][]string) *LinkScore {
	s := &LinkScore{}
	s.RecallNum, s.RecallDen = mucFraction(condition, test)
	s.PrecisionNum, s.PrecisionDen = mucFraction(test, condition)
	return s
}

// CorpusScore aggregates per-document pairwise and MUC scores.
type CorpusScore struct {
	Pairwise Total
	MUC      LinkScore
}

// Add scores one document.
func (c *CorpusScore) Add(test, condition [][]string) {
	c.Pairwise.Add(Pairwise(test, condition))
	c.MUC.Add(MUC(test, condition))
}

func (c *CorpusScore) String() string {
	byType := c.Pairwise.Errors().ByType()
	classes := make([]string, 0, len(byType))
	for class := range byType {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	errs := "none"
	if len(classes) > 0 {
		counts := make([]string, len(classes))
		for i, class := range classes {
			counts[i] = fmt.Sprintf("%s %d", class, byType[class])
		}
		errs = strings.Join(counts, ", ")
	}
	return fmt.Sprintf("Pairwise P %.4f R %.4f F1 %.4f (exact %d/%d = %.4f; errors: %s); MUC %s",
		c.Pairwise.Precision(), c.Pairwise.Recall(), c.Pairwise.F1(),
		c.Pairwise.Exact, c.Pairwise.Population, c.Pairwise.ExactMatch(),
		errs, c.MUC.String())
}
