package types

import (
	"github.com/pkg/errors"
)

var ErrUnknownMention = errors.New("unknown mention")

// LabelledRelation is a relation between two labelled mention indices.
type LabelledRelation struct {
	Gov, Dep int
	Type     RelationType
}

// GoldAnnotation is the reference annotation of a document in candidate
// terms. Labelled indices are indices into the document's mentions.
type GoldAnnotation struct {
	Candidate2Labelled [][]int
	LabelledTypes      []string
	Labelled2Event     map[int]int
	Relations          []LabelledRelation
}

// NumEvents counts the distinct event indices.
func (g *GoldAnnotation) NumEvents() int {
	events := make(map[int]bool, len(g.Labelled2Event))
	for _, e := range g.Labelled2Event {
		events[e] = true
	}
	return len(events)
}

// Annotate builds the document's candidates and its gold annotation. Events
// are numbered in order of first mention; a mention without an event id is
// its own singleton event.
func (d *Document) Annotate() ([]*MentionCandidate, *GoldAnnotation, error) {
	candidates, candidate2Labelled, err := CreateCandidates(d.Mentions)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "document %s", d.ID)
	}
	gold := &GoldAnnotation{
		Candidate2Labelled: candidate2Labelled,
		LabelledTypes:      make([]string, len(d.Mentions)),
		Labelled2Event:     make(map[int]int, len(d.Mentions)),
	}
	var (
		events    = make(map[string]int)
		numEvents int
	)
	for i, m := range d.Mentions {
		gold.LabelledTypes[i] = m.Type
		if m.Event == "" {
			gold.Labelled2Event[i] = numEvents
			numEvents++
			continue
		}
		event, exists := events[m.Event]
		if !exists {
			event = numEvents
			events[m.Event] = event
			numEvents++
		}
		gold.Labelled2Event[i] = event
	}

	index := d.MentionIndex()
	for _, rel := range d.Relations {
		relType, err := ParseRelation(rel.Type)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "document %s", d.ID)
		}
		if !relType.Extended() || relType.IsInverse() {
			return nil, nil, errors.Wrapf(ErrUnknownRelation, "document %s: %s is not a mention relation", d.ID, relType)
		}
		gov, govExists := index[rel.Gov]
		dep, depExists := index[rel.Dep]
		if !govExists || !depExists {
			return nil, nil, errors.Wrapf(ErrUnknownMention, "document %s: relation %s -> %s", d.ID, rel.Gov, rel.Dep)
		}
		gold.Relations = append(gold.Relations, LabelledRelation{Gov: gov, Dep: dep, Type: relType})
	}
	return candidates, gold, nil
}
