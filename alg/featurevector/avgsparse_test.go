package featurevector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryValueAveraging(t *testing.T) {
	// value 1 during generations 0,1 ; value 3 during generations 2,3
	h := NewHistoryValue(0, 1.0)
	h.Add(2, 2.0)
	assert.Equal(t, 3.0, h.Value)
	assert.Equal(t, 2.0, h.Total)
	assert.Equal(t, 8.0, h.IntegratedValue(4))
	assert.Equal(t, 2.0, h.AveragedValue(4))
	assert.Equal(t, 3.0, h.AveragedValue(0))
}

func TestAvgSparseDotProducts(t *testing.T) {
	v := NewAvgSparse()
	v.Add(0, fa, 2.0)
	v.Add(1, fb, 4.0)
	vec := Sparse{fa: 1.0, fb: 1.0, fc: 5.0}
	assert.Equal(t, 6.0, v.DotProduct(vec))
	// fa: 2 over both generations, fb: 4 over one of two
	assert.Equal(t, 4.0, v.AveragedDotProduct(vec, 2))
}

func TestAvgSparseSerializeRoundTrip(t *testing.T) {
	v := NewAvgSparse()
	v.UpdateScaledAdd(0, Sparse{fa: 1.0, fb: -1.0}, 2.0)
	v.Add(3, fa, 1.0)
	serialized := v.Serialize(5)

	restored := &AvgSparse{}
	restored.Deserialize(serialized, 5)
	for _, feat := range []Feature{fa, fb} {
		assert.Equal(t, v.Value(feat), restored.Value(feat))
		assert.InDelta(t, v.Averaged(feat, 5), restored.Averaged(feat, 5), 1e-12)
	}
}
