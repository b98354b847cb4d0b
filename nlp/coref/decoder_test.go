package coref

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcoref/alg/featurevector"
	"evcoref/nlp/types"
)

type nanWeights struct{}

func (nanWeights) Score(featurevector.Sparse, int) float64         { return math.NaN() }
func (nanWeights) AveragedScore(featurevector.Sparse, int) float64 { return math.NaN() }
func (nanWeights) Update(featurevector.Sparse, int, float64)       {}
func (nanWeights) IncrementGeneration()                            {}

// preferAfter boosts After edges so they beat every other label.
type preferAfter struct{}

func (preferAfter) Adjustment(ant, dep types.NodeKey, label types.RelationType) float64 {
	if label == types.After {
		return 10
	}
	return 0
}

func parents(tree *MentionSubGraph) []string {
	var retval []string
	for _, p := range tree.Edges() {
		retval = append(retval, p.Ant().String()+"-"+p.Label.String()+"->"+p.Dep().String())
	}
	return retval
}

func TestDecodeGoldConsistentSingleCluster(t *testing.T) {
	g := trainingGraph(t, makeDoc("A", "e1", "e1", "e1"), newCountingExtractor())
	tree, err := NewBestFirstDecoder().Decode(g, newTestWeights(), GoldConsistent)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ROOT-Root->0:Attack",
		"0:Attack-Coreference->1:Attack",
		"0:Attack-Coreference->2:Attack",
	}, parents(tree))
	require.Len(t, tree.CorefChains(), 1)
	assert.Len(t, tree.CorefChains()[0], 3)
}

func TestDecodeNoClusters(t *testing.T) {
	g := trainingGraph(t, makeDoc("B", "", ""), newCountingExtractor())
	decoder := NewBestFirstDecoder()
	for _, mode := range []DecodeMode{GoldConsistent, Unconstrained} {
		tree, err := decoder.Decode(g, newTestWeights(), mode)
		require.NoError(t, err)
		for _, p := range tree.Edges() {
			assert.Equal(t, types.Root, p.Label, "%s decode", mode)
		}
		assert.Empty(t, tree.CorefChains())
	}
}

func TestDecodeUnconstrainedPicksCoreference(t *testing.T) {
	candidates, _, err := types.CreateCandidates(makeDoc("C", "", "").Mentions)
	require.NoError(t, err)
	g := NewMentionGraph(candidates, newCountingExtractor(), false)
	w := newTestWeights()
	w.Update(featurevector.Sparse{FEAT_PAIR: 1}, int(types.Coreference), 1)

	tree, err := NewBestFirstDecoder().Decode(g, w, Unconstrained)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROOT-Root->0:Attack", "0:Attack-Coreference->1:Attack"}, parents(tree))
	assert.Equal(t, [][]types.NodeKey{{{Candidate: 0, Type: "Attack"}, {Candidate: 1, Type: "Attack"}}}, tree.CorefChains())
	assert.Equal(t, 1.0, tree.Score())
}

func TestDecodeAcyclicAndDeterministic(t *testing.T) {
	doc := makeDoc("D", "e1", "", "e1", "e2", "", "e2", "e1")
	g := trainingGraph(t, doc, newCountingExtractor())
	w := newTestWeights()
	w.Update(featurevector.Sparse{FEAT_PAIR: 1}, int(types.Coreference), 0.5)
	w.Update(featurevector.Sparse{FEAT_ROOT: 1}, int(types.Root), 0.25)
	decoder := NewBestFirstDecoder()

	for _, mode := range []DecodeMode{GoldConsistent, Unconstrained} {
		first, err := decoder.Decode(g, w, mode)
		require.NoError(t, err)
		second, err := decoder.Decode(g, w, mode)
		require.NoError(t, err)
		assert.True(t, first.Equal(second), "%s decode differs between runs", mode)
		assert.Equal(t, first.String(), second.String())

		for node := 1; node < g.NumNodes(); node++ {
			p := first.Parent(node)
			require.NotNil(t, p, "node %d has no parent", node)
			assert.Less(t, p.Ant().Node(), p.Dep().Node())
			// walking up the parents reaches the root
			seen := map[int]bool{}
			for cur := node; cur != 0; cur = first.Parent(cur).Ant().Node() {
				require.False(t, seen[cur], "cycle through node %d", cur)
				seen[cur] = true
			}
		}
	}
}

func TestResolveCoreferenceIdempotent(t *testing.T) {
	g := trainingGraph(t, makeDoc("I", "e1", "e2", "e1", "e2", "e1"), newCountingExtractor())
	tree, err := NewBestFirstDecoder().Decode(g, newTestWeights(), GoldConsistent)
	require.NoError(t, err)
	first := tree.ResolveCoreference()
	second := tree.ResolveCoreference()
	assert.Equal(t, first, second)
	assert.Equal(t, "{0:Attack,2:Attack,4:Attack} {1:Attack,3:Attack}", ChainString(first))
}

func TestCorefChainsDeduplicateSpans(t *testing.T) {
	doc := makeDoc("S", "e1", "e1")
	doc.Mentions = append(doc.Mentions, &types.Mention{
		ID: "m2b", Begin: 10, End: 15, Sentence: 1, Text: "attack", Type: "Injure", Event: "e1",
	})
	g := trainingGraph(t, doc, newCountingExtractor())
	tree := NewMentionSubGraph(g, g.NumNodes())
	e, _ := g.EdgeBetween(2, 1)
	k1 := types.NodeKey{Candidate: 0, Type: "Attack"}
	tree.AddEdge(e.LabelledEdge(k1, types.NodeKey{Candidate: 1, Type: "Injure"}), types.Coreference, 0)
	root, _ := g.EdgeBetween(1, 0)
	tree.AddEdge(root.LabelledEdge(types.RootKey, k1), types.Root, 0)
	assert.Equal(t, [][]types.NodeKey{{k1, {Candidate: 1, Type: "Injure"}}}, tree.CorefChains())
}

func TestDecodeNoValidEdge(t *testing.T) {
	candidates, _, err := types.CreateCandidates(makeDoc("N", "", "").Mentions)
	require.NoError(t, err)
	g := NewMentionGraph(candidates, newCountingExtractor(), false)
	_, err = NewBestFirstDecoder().Decode(g, nanWeights{}, Unconstrained)
	assert.ErrorIs(t, err, ErrNoValidEdge)

	// an inference graph has no gold labels to choose from
	_, err = NewBestFirstDecoder().Decode(g, newTestWeights(), GoldConsistent)
	assert.ErrorIs(t, err, ErrNoValidEdge)
}

func TestDecodePrefix(t *testing.T) {
	g := trainingGraph(t, makeDoc("P", "e1", "e1", "e1"), newCountingExtractor())
	decoder := NewBestFirstDecoder()
	tree, err := decoder.DecodePrefix(g, newTestWeights(), GoldConsistent, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, tree.Limit())
	assert.Len(t, tree.Edges(), 2)

	empty, err := decoder.DecodePrefix(g, newTestWeights(), GoldConsistent, 1)
	require.NoError(t, err)
	assert.Empty(t, empty.Edges())

	for _, limit := range []int{0, 5} {
		_, err := decoder.DecodePrefix(g, newTestWeights(), GoldConsistent, limit)
		assert.ErrorIs(t, err, ErrOutOfRange)
	}
}

func TestJointConstraintAdjustsScores(t *testing.T) {
	candidates, _, err := types.CreateCandidates(makeDoc("J", "", "").Mentions)
	require.NoError(t, err)
	g := NewMentionGraph(candidates, newCountingExtractor(), false)
	decoder := NewBestFirstDecoder()
	decoder.Constraint = preferAfter{}
	tree, err := decoder.Decode(g, newTestWeights(), Unconstrained)
	require.NoError(t, err)
	assert.Equal(t, types.After, tree.Parent(2).Label)
	assert.Empty(t, tree.CorefChains())
	assert.Equal(t, map[types.RelationType]map[types.NodeKey][]types.NodeKey{
		types.After: {{Candidate: 0, Type: "Attack"}: {{Candidate: 1, Type: "Attack"}}},
	}, tree.Relations())
}

func TestDecodeRelationDirection(t *testing.T) {
	doc := makeDoc("I", "e1", "e2")
	doc.Relations = []types.Relation{{Gov: "m2", Dep: "m1", Type: "After"}}
	g := trainingGraph(t, doc, newCountingExtractor())
	k1 := types.NodeKey{Candidate: 0, Type: "Attack"}
	k2 := types.NodeKey{Candidate: 1, Type: "Attack"}
	expected := map[types.RelationType]map[types.NodeKey][]types.NodeKey{
		types.After: {k2: {k1}},
	}
	assert.Equal(t, expected, g.ResolvedRelations())

	gold, err := NewBestFirstDecoder().Decode(g, newTestWeights(), GoldConsistent)
	require.NoError(t, err)
	assert.Equal(t, types.AfterInverse, gold.Parent(2).Label)
	assert.Equal(t, expected, gold.Relations())

	w := newTestWeights()
	w.Update(featurevector.Sparse{FEAT_PAIR: 1}, int(types.AfterInverse), 2)
	pred, err := NewBestFirstDecoder().Decode(g, w, Unconstrained)
	require.NoError(t, err)
	assert.True(t, pred.Equal(gold))
	assert.Equal(t, expected, pred.Relations())

	resolver := &Resolver{Decoder: NewBestFirstDecoder(), Weights: w}
	result, err := resolver.ResolveDocument(doc, newCountingExtractor())
	require.NoError(t, err)
	assert.Empty(t, result.Clusters)
	assert.Equal(t, []ResolvedRelation{{Gov: "m2", Dep: "m1", Type: types.After}}, result.Relations)
}

func TestGoldDecodeUsesConstraint(t *testing.T) {
	candidates, _, err := types.CreateCandidates(makeDoc("G", "", "").Mentions)
	require.NoError(t, err)
	g := NewMentionGraph(candidates, newCountingExtractor(), false)
	e, _ := g.EdgeBetween(2, 1)
	ant, dep := g.Keys(1)[0], g.Keys(2)[0]
	e.addRealEdge(ant, dep, types.Coreference)
	e.addRealEdge(ant, dep, types.After)
	root, _ := g.EdgeBetween(1, 0)
	root.addRealEdge(types.RootKey, ant, types.Root)

	decoder := NewBestFirstDecoder()
	tree, err := decoder.Decode(g, newTestWeights(), GoldConsistent)
	require.NoError(t, err)
	assert.Equal(t, types.Coreference, tree.Parent(2).Label)

	decoder.Constraint = preferAfter{}
	tree, err = decoder.Decode(g, newTestWeights(), GoldConsistent)
	require.NoError(t, err)
	assert.Equal(t, types.After, tree.Parent(2).Label)
	assert.Equal(t, 10.0, tree.Parent(2).Score)
}

func TestDecoderRelationSet(t *testing.T) {
	candidates, _, err := types.CreateCandidates(makeDoc("O", "", "").Mentions)
	require.NoError(t, err)
	g := NewMentionGraph(candidates, newCountingExtractor(), false)
	w := newTestWeights()
	w.Update(featurevector.Sparse{FEAT_PAIR: 1}, int(types.Subevent), 3)
	w.Update(featurevector.Sparse{FEAT_PAIR: 1}, int(types.Coreference), 1)

	tree, err := NewBestFirstDecoder().Decode(g, w, Unconstrained)
	require.NoError(t, err)
	assert.Equal(t, types.Subevent, tree.Parent(2).Label)

	tree, err = NewBestFirstDecoder(types.Coreference).Decode(g, w, Unconstrained)
	require.NoError(t, err)
	assert.Equal(t, types.Coreference, tree.Parent(2).Label)

	assert.Equal(t, []types.RelationType{types.Coreference, types.After, types.AfterInverse},
		NewBestFirstDecoder(types.Coreference, types.After).Relations)
}

func TestSubGraphLossAndFeatures(t *testing.T) {
	g := trainingGraph(t, makeDoc("F", "e1", "e1"), newCountingExtractor())
	decoder := NewBestFirstDecoder()
	gold, err := decoder.Decode(g, newTestWeights(), GoldConsistent)
	require.NoError(t, err)
	pred, err := decoder.Decode(g, newTestWeights(), Unconstrained)
	require.NoError(t, err)

	assert.False(t, gold.Equal(pred))
	assert.Equal(t, 1.0, pred.Loss(gold))
	assert.Equal(t, 0.0, gold.Loss(gold))

	feats := gold.Features()
	assert.Equal(t, featurevector.Sparse{FEAT_ROOT: 1}, feats[int(types.Root)])
	assert.Equal(t, featurevector.Sparse{FEAT_PAIR: 1}, feats[int(types.Coreference)])
	assert.Equal(t, featurevector.Sparse{FEAT_ROOT: 2}, pred.Features()[int(types.Root)])
}
