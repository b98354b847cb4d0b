package featurevector

import (
	"fmt"
	"sort"
	"strings"
)

// Feature is an index into a feature alphabet.
type Feature int

type Sparse map[Feature]float64

func (v Sparse) Copy() Sparse {
	copied := make(Sparse, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return copied
}

// UpdateScaledAdd adds scale*other into v in place, dropping entries that
// cancel out.
func (v Sparse) UpdateScaledAdd(other Sparse, scale float64) Sparse {
	var val float64
	for key, otherVal := range other {
		// v[key] == 0 if v[key] does not exist
		val = v[key] + scale*otherVal
		if val != 0.0 {
			v[key] = val
		} else {
			delete(v, key)
		}
	}
	return v
}

func (v Sparse) NormSquared() float64 {
	var result float64
	for _, val := range v {
		result += val * val
	}
	return result
}

// Features returns the keys of v in increasing order.
func (v Sparse) Features() []Feature {
	keys := make([]Feature, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (v Sparse) String() string {
	strs := make([]string, 0, len(v))
	for _, feat := range v.Features() {
		strs = append(strs, fmt.Sprintf("%v %v", feat, v[feat]))
	}
	return strings.Join(strs, "\n")
}

func NewSparse() Sparse {
	return make(Sparse)
}
