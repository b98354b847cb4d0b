package featurevector

import (
	"fmt"
	"strings"
	"sync"
)

// HistoryValue is a weight that remembers when it last changed, so the sum of
// its values over all generations can be recovered without touching it on
// every generation.
type HistoryValue struct {
	Generation int
	Value      float64
	Total      float64
}

// IntegratedValue is the sum of the value over generations [0, generation).
func (h *HistoryValue) IntegratedValue(generation int) float64 {
	return h.Total + float64(generation-h.Generation)*h.Value
}

// AveragedValue is the mean value over generations [0, generation). At
// generation 0 nothing has been integrated yet and the current value is used.
func (h *HistoryValue) AveragedValue(generation int) float64 {
	if generation <= 0 {
		return h.Value
	}
	return h.IntegratedValue(generation) / float64(generation)
}

func (h *HistoryValue) Add(generation int, amount float64) {
	if h.Generation < generation {
		h.Total += float64(generation-h.Generation) * h.Value
		h.Generation = generation
	}
	h.Value += amount
}

func NewHistoryValue(generation int, value float64) *HistoryValue {
	// the value did not exist before generation, so its integral is zero
	return &HistoryValue{Generation: generation, Value: value}
}

// AvgSparse is a sparse weight vector of history values.
type AvgSparse struct {
	sync.RWMutex
	Vals map[Feature]*HistoryValue
}

func (v *AvgSparse) Value(feature Feature) float64 {
	v.RLock()
	defer v.RUnlock()
	if histValue, exists := v.Vals[feature]; exists {
		return histValue.Value
	}
	return 0.0
}

func (v *AvgSparse) Averaged(feature Feature, generation int) float64 {
	v.RLock()
	defer v.RUnlock()
	if histValue, exists := v.Vals[feature]; exists {
		return histValue.AveragedValue(generation)
	}
	return 0.0
}

// DotProduct scores vec against the current values.
func (v *AvgSparse) DotProduct(vec Sparse) float64 {
	v.RLock()
	defer v.RUnlock()
	var result float64
	for feat, val := range vec {
		if histValue, exists := v.Vals[feat]; exists {
			result += histValue.Value * val
		}
	}
	return result
}

// AveragedDotProduct scores vec against the values averaged up to generation.
func (v *AvgSparse) AveragedDotProduct(vec Sparse, generation int) float64 {
	v.RLock()
	defer v.RUnlock()
	var result float64
	for feat, val := range vec {
		if histValue, exists := v.Vals[feat]; exists {
			result += histValue.AveragedValue(generation) * val
		}
	}
	return result
}

func (v *AvgSparse) Add(generation int, feature Feature, amount float64) {
	v.Lock()
	defer v.Unlock()
	if histValue, exists := v.Vals[feature]; exists {
		histValue.Add(generation, amount)
		return
	}
	v.Vals[feature] = NewHistoryValue(generation, amount)
}

// UpdateScaledAdd adds scale*vec to the vector at generation.
func (v *AvgSparse) UpdateScaledAdd(generation int, vec Sparse, scale float64) {
	for feat, val := range vec {
		v.Add(generation, feat, scale*val)
	}
}

func (v *AvgSparse) Len() int {
	v.RLock()
	defer v.RUnlock()
	return len(v.Vals)
}

func (v *AvgSparse) String() string {
	v.RLock()
	defer v.RUnlock()
	strs := make([]string, 0, len(v.Vals))
	for feat, val := range v.Vals {
		strs = append(strs, fmt.Sprintf("%v %v", feat, val.Value))
	}
	return strings.Join(strs, "\n")
}

// SerializedValue is a finalized weight: its current and averaged values.
type SerializedValue struct {
	Value, Average float64
}

// Serialize snapshots the vector at generation without integrating it.
func (v *AvgSparse) Serialize(generation int) map[Feature]SerializedValue {
	v.RLock()
	defer v.RUnlock()
	retval := make(map[Feature]SerializedValue, len(v.Vals))
	for feat, histValue := range v.Vals {
		retval[feat] = SerializedValue{
			Value:   histValue.Value,
			Average: histValue.AveragedValue(generation),
		}
	}
	return retval
}

// Deserialize restores a snapshot so that both the current value and the
// average at generation are reproduced.
func (v *AvgSparse) Deserialize(data map[Feature]SerializedValue, generation int) {
	v.Lock()
	defer v.Unlock()
	v.Vals = make(map[Feature]*HistoryValue, len(data))
	for feat, value := range data {
		histValue := &HistoryValue{Generation: generation, Value: value.Value}
		if generation > 0 {
			histValue.Total = value.Average * float64(generation)
		}
		v.Vals[feat] = histValue
	}
}

func NewAvgSparse() *AvgSparse {
	return &AvgSparse{Vals: make(map[Feature]*HistoryValue, 100)}
}
