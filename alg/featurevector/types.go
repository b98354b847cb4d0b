package featurevector

import (
	"fmt"
	"sort"
	"strings"
)

// Labelled holds one sparse vector per class (relation type) index.
type Labelled map[int]Sparse

// AddTo accumulates scale*vec into the vector of class.
func (l Labelled) AddTo(class int, vec Sparse, scale float64) {
	cur, exists := l[class]
	if !exists {
		cur = make(Sparse, len(vec))
		l[class] = cur
	}
	cur.UpdateScaledAdd(vec, scale)
	if len(cur) == 0 {
		delete(l, class)
	}
}

func (l Labelled) Copy() Labelled {
	copied := make(Labelled, len(l))
	for class, vec := range l {
		copied[class] = vec.Copy()
	}
	return copied
}

func (l Labelled) Subtract(other Labelled) Labelled {
	retval := l.Copy()
	for class, vec := range other {
		retval.AddTo(class, vec, -1.0)
	}
	return retval
}

func (l Labelled) NormSquared() float64 {
	var result float64
	for _, vec := range l {
		result += vec.NormSquared()
	}
	return result
}

func (l Labelled) Classes() []int {
	classes := make([]int, 0, len(l))
	for c := range l {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

func (l Labelled) String() string {
	strs := make([]string, 0, len(l))
	for _, c := range l.Classes() {
		strs = append(strs, fmt.Sprintf("class %d\n%s", c, l[c]))
	}
	return strings.Join(strs, "\n")
}
