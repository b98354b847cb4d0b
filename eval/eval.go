// Package eval scores predicted clusters against gold clusters.
package eval

// Precision is 0 when nothing was predicted.
func Precision(truePositives, testPositives int) float64 {
	if testPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(testPositives)
}

func Recall(truePositives, conditionPositives int) float64 {
	if conditionPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(conditionPositives)
}

func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2.0 * (precision * recall) / (precision + recall)
}

type Error interface {
	String() string
	Class() string
}

type Errors []Error

func (ers Errors) ByType() map[string]int {
	retval := make(map[string]int)
	for _, e := range ers {
		if curval, exists := retval[e.Class()]; exists {
			retval[e.Class()] = curval + 1
		} else {
			retval[e.Class()] = 1
		}
	}
	return retval
}

// Result counts the links of one document. Link scores have no true
// negatives.
type Result struct {
	TP, FP, FN int
	Errors     Errors
}

func (r *Result) Incorrect() int {
	return r.FP + r.FN
}

func (r *Result) TestPositives() int {
	return r.TP + r.FP
}

func (r *Result) ConditionPositives() int {
	return r.TP + r.FN
}

func (r *Result) Precision() float64 {
	return Precision(r.TP, r.TestPositives())
}

func (r *Result) Recall() float64 {
	return Recall(r.TP, r.ConditionPositives())
}

func (r *Result) F1() float64 {
	return F1(r.Precision(), r.Recall())
}

// Total sums the results of a corpus and keeps each one for its errors.
type Total struct {
	Result
	Results           []*Result
	Exact, Population int
}

func (t *Total) Add(r *Result) {
	t.TP += r.TP
	t.FP += r.FP
	t.FN += r.FN
	if r.Incorrect() == 0 {
		t.Exact += 1
	}
	t.Population += 1
	t.Results = append(t.Results, r)
}

func (t *Total) ExactMatch() float64 {
	if t.Population == 0 {
		return 0
	}
	return float64(t.Exact) / float64(t.Population)
}

func (t *Total) Errors() Errors {
	retval := make([]Error, 0, t.Incorrect())
	for _, v := range t.Results {
		if v.Errors != nil {
			retval = append(retval, v.Errors...)
		}
	}
	return retval
}
