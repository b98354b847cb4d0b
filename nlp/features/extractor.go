// Package features extracts sparse pair features for mention graph edges.
// The active feature functions are chosen by a spec string such as
// "bias;distance;headword".
package features

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"evcoref/alg/featurevector"
	"evcoref/nlp/types"
	"evcoref/util"
)

const (
	DEFAULT_SPEC = "bias;distance;headword;mentiontype;realis;trigger"

	APPROX_FEATURES = 4096
)

var ErrUnknownFeature = errors.New("unknown feature function")

type adder func(name string)

// workspace holds the per-document state feature functions read.
type workspace struct {
	candidates []*types.MentionCandidate
	docType    string
}

type pairFunc func(ws *workspace, ant, dep *types.MentionCandidate, antKey, depKey types.NodeKey, add adder)

type rootFunc func(ws *workspace, dep *types.MentionCandidate, depKey types.NodeKey, add adder)

type template struct {
	pair pairFunc
	root rootFunc
}

var templates = map[string]template{
	"bias":        {pair: biasPair, root: biasRoot},
	"distance":    {pair: distancePair, root: distanceRoot},
	"headword":    {pair: headwordPair, root: headwordRoot},
	"mentiontype": {pair: typePair, root: typeRoot},
	"realis":      {pair: realisPair, root: realisRoot},
	"trigger":     {pair: triggerPair},
}

// Names lists the known feature functions.
func Names() []string {
	retval := make([]string, 0, len(templates))
	for name := range templates {
		retval = append(retval, name)
	}
	sort.Strings(retval)
	return retval
}

// ParseSpec splits a feature spec on ';', dropping blanks and verifying each
// name is a known feature function.
func ParseSpec(spec string) ([]string, error) {
	var retval []string
	for _, name := range strings.Split(spec, ";") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := templates[name]; !exists {
			return nil, errors.Wrapf(ErrUnknownFeature, "%q", name)
		}
		retval = append(retval, name)
	}
	if len(retval) == 0 {
		return nil, errors.Errorf("empty feature spec %q", spec)
	}
	return retval, nil
}

// Extractor computes edge features for one document at a time. Feature names
// are interned in EFeatures, which grows while training and is frozen for
// resolution, in which case unseen features are dropped.
type Extractor struct {
	Spec      string
	EFeatures *util.EnumSet

	names     []string
	templates []template
	ws        workspace
}

// NewExtractor builds an extractor for spec. A nil alphabet starts a new one.
func NewExtractor(spec string, alphabet *util.EnumSet) (*Extractor, error) {
	names, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	if alphabet == nil {
		alphabet = util.NewEnumSet(APPROX_FEATURES)
	}
	e := &Extractor{
		Spec:      strings.Join(names, ";"),
		EFeatures: alphabet,
		names:     names,
		templates: make([]template, len(names)),
	}
	for i, name := range names {
		e.templates[i] = templates[name]
	}
	e.ws.docType = types.DOC_NEWS
	return e, nil
}

// Fork returns an extractor sharing the spec and alphabet with a fresh
// workspace, for use by another goroutine.
func (e *Extractor) Fork() *Extractor {
	return &Extractor{
		Spec:      e.Spec,
		EFeatures: e.EFeatures,
		names:     e.names,
		templates: e.templates,
		ws:        workspace{docType: types.DOC_NEWS},
	}
}

func (e *Extractor) Freeze() {
	e.EFeatures.Frozen = true
}

// Thaw lets the alphabet grow again after a Freeze.
func (e *Extractor) Thaw() {
	e.EFeatures.Frozen = false
}

func (e *Extractor) NumFeatures() int {
	return e.EFeatures.Len()
}

// InitWorkspace resets the extractor for a new set of candidates.
func (e *Extractor) InitWorkspace(candidates []*types.MentionCandidate) {
	e.ws.candidates = candidates
}

// InitDocumentWorkspace records the document level context.
func (e *Extractor) InitDocumentWorkspace(doc *types.Document) {
	if doc.IsForum() {
		e.ws.docType = types.DOC_FORUM
	} else {
		e.ws.docType = types.DOC_NEWS
	}
}

// Extract computes the features of the edge from antecedent ant to
// dependent dep.
func (e *Extractor) Extract(ant, dep types.NodeKey) featurevector.Sparse {
	vec := featurevector.NewSparse()
	add := func(name string) {
		if idx, ok := e.EFeatures.Lookup(name); ok {
			vec[featurevector.Feature(idx)] = 1
		}
	}
	depCand := e.ws.candidates[dep.Candidate]
	if ant.IsRoot() {
		for _, t := range e.templates {
			if t.root != nil {
				t.root(&e.ws, depCand, dep, add)
			}
		}
		return vec
	}
	antCand := e.ws.candidates[ant.Candidate]
	for _, t := range e.templates {
		if t.pair != nil {
			t.pair(&e.ws, antCand, depCand, ant, dep, add)
		}
	}
	return vec
}

// Describe renders a feature vector with feature names, sorted.
func (e *Extractor) Describe(vec featurevector.Sparse) string {
	parts := make([]string, 0, len(vec))
	for _, f := range vec.Features() {
		parts = append(parts, fmt.Sprintf("%s:%v", e.EFeatures.ValueOf(int(f)), vec[f]))
	}
	return strings.Join(parts, " ")
}
