package types

const (
	DOC_NEWS  = "news"
	DOC_FORUM = "forum"
)

// Mention is one annotated (or predicted) event mention. Linguistic fields
// are computed upstream.
type Mention struct {
	ID       string `json:"id"`
	Begin    int    `json:"begin"`
	End      int    `json:"end"`
	Sentence int    `json:"sentence"`
	Text     string `json:"text"`
	Head     string `json:"head,omitempty"`
	Lemma    string `json:"lemma,omitempty"`
	Type     string `json:"type"`
	Realis   string `json:"realis,omitempty"`
	// Event groups coreferent mentions; empty marks a singleton.
	Event string `json:"event,omitempty"`
}

// Relation is a directed mention-level relation, governor to dependent.
type Relation struct {
	Gov  string `json:"gov"`
	Dep  string `json:"dep"`
	Type string `json:"type"`
}

type Document struct {
	ID        string     `json:"id"`
	Type      string     `json:"type,omitempty"`
	Mentions  []*Mention `json:"mentions"`
	Relations []Relation `json:"relations,omitempty"`
}

func (d *Document) IsForum() bool {
	return d.Type == DOC_FORUM
}

// MentionIndex maps mention ids to their position in Mentions.
func (d *Document) MentionIndex() map[string]int {
	retval := make(map[string]int, len(d.Mentions))
	for i, m := range d.Mentions {
		retval[m.ID] = i
	}
	return retval
}

// GoldClusters groups mention ids by event, in first-mention order, keeping
// only events with at least two mentions.
func (d *Document) GoldClusters() [][]string {
	var (
		order    []string
		clusters = make(map[string][]string)
	)
	for _, m := range d.Mentions {
		if m.Event == "" {
			continue
		}
		if _, exists := clusters[m.Event]; !exists {
			order = append(order, m.Event)
		}
		clusters[m.Event] = append(clusters[m.Event], m.ID)
	}
	retval := make([][]string, 0, len(order))
	for _, event := range order {
		if len(clusters[event]) > 1 {
			retval = append(retval, clusters[event])
		}
	}
	return retval
}
