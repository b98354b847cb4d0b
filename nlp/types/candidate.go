package types

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

type span struct {
	Begin, End int
}

// MentionCandidate is a unique span eligible for linking. A span tagged with
// several mention types carries one key per type.
type MentionCandidate struct {
	Index      int
	Begin, End int
	Sentence   int
	Text       string
	Head       string
	Lemma      string
	Realis     string

	keys    [MaxKeysPerCandidate]NodeKey
	numKeys int
	// mention indices behind each key
	labelled [MaxKeysPerCandidate][]int
}

func (c *MentionCandidate) Keys() []NodeKey {
	return c.keys[:c.numKeys]
}

func (c *MentionCandidate) NumKeys() int {
	return c.numKeys
}

// KeyIndex is the position of the key typed typ, or -1.
func (c *MentionCandidate) KeyIndex(typ string) int {
	for i := 0; i < c.numKeys; i++ {
		if c.keys[i].Type == typ {
			return i
		}
	}
	return -1
}

// Labelled lists the indices of the mentions behind key i.
func (c *MentionCandidate) Labelled(i int) []int {
	return c.labelled[i]
}

func (c *MentionCandidate) addMention(mention int, typ string) error {
	i := c.KeyIndex(typ)
	if i < 0 {
		if c.numKeys == MaxKeysPerCandidate {
			return errors.Wrapf(ErrTooManyKeys, "span [%d,%d) type %q", c.Begin, c.End, typ)
		}
		i = c.numKeys
		c.keys[i] = NodeKey{Candidate: c.Index, Type: typ}
		c.numKeys++
	}
	c.labelled[i] = append(c.labelled[i], mention)
	return nil
}

func (c *MentionCandidate) String() string {
	return fmt.Sprintf("%d[%d,%d)%q%v", c.Index, c.Begin, c.End, c.Text, c.Keys())
}

// CreateCandidates collapses mentions into one candidate per unique span,
// ordered by span position. Each mention becomes (or joins) the key of its
// type on its span. The second return value maps each candidate to the
// indices of its mentions.
func CreateCandidates(mentions []*Mention) ([]*MentionCandidate, [][]int, error) {
	order := make([]int, len(mentions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := mentions[order[i]], mentions[order[j]]
		if a.Begin != b.Begin {
			return a.Begin < b.Begin
		}
		return a.End < b.End
	})

	var (
		candidates []*MentionCandidate
		labelled   [][]int
		bySpan     = make(map[span]*MentionCandidate)
	)
	for _, mi := range order {
		m := mentions[mi]
		s := span{m.Begin, m.End}
		cand, exists := bySpan[s]
		if !exists {
			cand = &MentionCandidate{
				Index:    len(candidates),
				Begin:    m.Begin,
				End:      m.End,
				Sentence: m.Sentence,
				Text:     m.Text,
				Head:     m.Head,
				Lemma:    m.Lemma,
				Realis:   m.Realis,
			}
			bySpan[s] = cand
			candidates = append(candidates, cand)
			labelled = append(labelled, nil)
		}
		if err := cand.addMention(mi, m.Type); err != nil {
			return nil, nil, err
		}
		labelled[cand.Index] = append(labelled[cand.Index], mi)
	}
	return candidates, labelled, nil
}
