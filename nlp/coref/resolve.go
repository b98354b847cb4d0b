package coref

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evcoref/nlp/types"
)

// ResolvedRelation is a selected extended relation between two mentions.
type ResolvedRelation struct {
	Gov, Dep string
	Type     types.RelationType
}

// Result is the resolution of one document: clusters of mention ids with at
// least two members and the selected relations.
type Result struct {
	DocID     string
	Clusters  [][]string
	Relations []ResolvedRelation
}

type ResolveMetrics struct {
	Documents *prometheus.CounterVec
	Clusters  prometheus.Counter
}

func NewResolveMetrics(reg prometheus.Registerer, namespace string) *ResolveMetrics {
	m := &ResolveMetrics{
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "documents_total",
			Help:      "Documents resolved, by outcome.",
		}, []string{"status"}),
		Clusters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "clusters_total",
			Help:      "Multi-mention clusters emitted.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Documents, m.Clusters)
	}
	return m
}

// Resolver decodes documents with fixed weights. NewExtractor must return an
// extractor that is safe to use alongside the others it returns.
type Resolver struct {
	Decoder      *BestFirstDecoder
	NewExtractor func() FeatureExtractor
	Weights      Weights
	UseAverage   bool
	Workers      int
	Log          *zap.Logger
	Metrics      *ResolveMetrics
}

// ResolveDocument decodes one document with the given extractor.
func (r *Resolver) ResolveDocument(doc *types.Document, extractor FeatureExtractor) (*Result, error) {
	result := &Result{DocID: doc.ID}
	candidates, _, err := types.CreateCandidates(doc.Mentions)
	if err != nil {
		return nil, errors.Wrapf(err, "document %s", doc.ID)
	}
	if len(candidates) == 0 {
		return result, nil
	}
	extractor.InitWorkspace(candidates)
	extractor.InitDocumentWorkspace(doc)
	g := NewMentionGraph(candidates, extractor, r.UseAverage)
	tree, err := r.Decoder.Decode(g, r.Weights, Unconstrained)
	if err != nil {
		return nil, errors.Wrapf(err, "document %s", doc.ID)
	}
	mentionIDs := func(k types.NodeKey) []string {
		cand := candidates[k.Candidate]
		labelled := cand.Labelled(cand.KeyIndex(k.Type))
		ids := make([]string, len(labelled))
		for i, l := range labelled {
			ids[i] = doc.Mentions[l].ID
		}
		return ids
	}
	for _, chain := range tree.CorefChains() {
		var cluster []string
		for _, k := range chain {
			cluster = append(cluster, mentionIDs(k)...)
		}
		result.Clusters = append(result.Clusters, cluster)
	}
	relations := tree.Relations()
	for _, rel := range types.AllRelations {
		adjacency, exists := relations[rel]
		if !exists {
			continue
		}
		govs := make([]types.NodeKey, 0, len(adjacency))
		for gov := range adjacency {
			govs = append(govs, gov)
		}
		sort.Slice(govs, func(i, j int) bool { return govs[i].Less(govs[j]) })
		for _, gov := range govs {
			for _, dep := range adjacency[gov] {
				result.Relations = append(result.Relations, ResolvedRelation{
					Gov:  mentionIDs(gov)[0],
					Dep:  mentionIDs(dep)[0],
					Type: rel,
				})
			}
		}
	}
	return result, nil
}

// Resolve decodes docs in parallel, at most Workers at a time, each with its
// own extractor. Results are in input order. A document that fails to decode
// is logged and yields an empty result.
func (r *Resolver) Resolve(ctx context.Context, docs []*types.Document) ([]*Result, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]*Result, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	if r.Workers > 0 {
		g.SetLimit(r.Workers)
	}
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := r.ResolveDocument(doc, r.NewExtractor())
			if err != nil {
				log.Warn("failed resolving document", zap.String("doc", doc.ID), zap.Error(err))
				r.observe("failed", 0)
				results[i] = &Result{DocID: doc.ID}
				return nil
			}
			r.observe("resolved", len(result.Clusters))
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) observe(status string, clusters int) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.Documents.WithLabelValues(status).Inc()
	r.Metrics.Clusters.Add(float64(clusters))
}
