// Package model holds the linear weight matrix scored by the decoders: one
// averaged sparse vector per class, indexed by the class alphabet.
package model

import (
	"encoding/gob"
	"fmt"
	"strings"

	"evcoref/alg/featurevector"
	"evcoref/util"
)

func init() {
	gob.Register(&WeightMatrixSerialized{})
}

type WeightMatrix struct {
	Mat        []*featurevector.AvgSparse
	Generation int

	// FeatureAlphabet interprets the feature indices of every row
	FeatureAlphabet *util.EnumSet
	// ClassAlphabet interprets the row indices
	ClassAlphabet *util.EnumSet
}

type WeightMatrixSerialized struct {
	Generation int
	Classes    []string
	Features   []string
	Mat        []map[featurevector.Feature]featurevector.SerializedValue
}

// Score is the dot product of features with the current weights of class.
func (t *WeightMatrix) Score(features featurevector.Sparse, class int) float64 {
	if class < 0 || class >= len(t.Mat) {
		panic(fmt.Sprintf("Unknown class %d of %d", class, len(t.Mat)))
	}
	return t.Mat[class].DotProduct(features)
}

// AveragedScore is the dot product of features with the weights of class
// averaged over all generations so far.
func (t *WeightMatrix) AveragedScore(features featurevector.Sparse, class int) float64 {
	if class < 0 || class >= len(t.Mat) {
		panic(fmt.Sprintf("Unknown class %d of %d", class, len(t.Mat)))
	}
	return t.Mat[class].AveragedDotProduct(features, t.Generation)
}

// Update adds amount*features to the weights of class.
func (t *WeightMatrix) Update(features featurevector.Sparse, class int, amount float64) {
	if class < 0 || class >= len(t.Mat) {
		panic(fmt.Sprintf("Unknown class %d of %d", class, len(t.Mat)))
	}
	t.Mat[class].UpdateScaledAdd(t.Generation, features, amount)
}

func (t *WeightMatrix) IncrementGeneration() {
	t.Generation += 1
}

func (t *WeightMatrix) NumClasses() int {
	return len(t.Mat)
}

func (t *WeightMatrix) Serialize() *WeightMatrixSerialized {
	serialized := &WeightMatrixSerialized{
		Generation: t.Generation,
		Mat:        make([]map[featurevector.Feature]featurevector.SerializedValue, len(t.Mat)),
	}
	if t.ClassAlphabet != nil {
		serialized.Classes = append([]string(nil), t.ClassAlphabet.Index...)
	}
	if t.FeatureAlphabet != nil {
		serialized.Features = append([]string(nil), t.FeatureAlphabet.Index...)
	}
	for i, val := range t.Mat {
		serialized.Mat[i] = val.Serialize(t.Generation)
	}
	return serialized
}

func (t *WeightMatrix) Deserialize(data *WeightMatrixSerialized) {
	t.Generation = data.Generation
	t.ClassAlphabet = util.NewEnumSetOf(data.Classes...)
	t.FeatureAlphabet = util.NewEnumSetOf(data.Features...)
	t.Mat = make([]*featurevector.AvgSparse, len(data.Mat))
	for i, val := range data.Mat {
		avgSparse := &featurevector.AvgSparse{}
		avgSparse.Deserialize(val, t.Generation)
		t.Mat[i] = avgSparse
	}
}

func (t *WeightMatrix) String() string {
	retval := make([]string, len(t.Mat))
	for i, val := range t.Mat {
		name := fmt.Sprintf("%d", i)
		if t.ClassAlphabet != nil && i < t.ClassAlphabet.Len() {
			name = t.ClassAlphabet.ValueOf(i)
		}
		retval[i] = fmt.Sprintf("%s\n%s", name, val.String())
	}
	return strings.Join(retval, "\n")
}

// NewWeightMatrix creates an all-zero matrix with one row per class in
// classes.
func NewWeightMatrix(classes, features *util.EnumSet) *WeightMatrix {
	mat := make([]*featurevector.AvgSparse, classes.Len())
	for i := range mat {
		mat[i] = featurevector.NewAvgSparse()
	}
	return &WeightMatrix{Mat: mat, FeatureAlphabet: features, ClassAlphabet: classes}
}
