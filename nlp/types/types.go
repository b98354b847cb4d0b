package types

import (
	"fmt"

	"github.com/pkg/errors"

	"evcoref/util"
)

const (
	ROOT_TYPE = "ROOT"

	// MaxKeysPerCandidate bounds the typed identities a single span may carry.
	MaxKeysPerCandidate = 4
)

var (
	ErrUnknownRelation = errors.New("unknown relation type")
	ErrTooManyKeys     = errors.New("too many mention types on one span")
)

// RelationType labels an edge of the mention graph.
type RelationType int

const (
	Root RelationType = iota
	Coreference
	After
	Subevent
	// AfterInverse and SubeventInverse label an edge whose dependent (the
	// later mention) is the relation's governor.
	AfterInverse
	SubeventInverse
	NumRelations
)

var relationNames = [NumRelations]string{"Root", "Coreference", "After", "Subevent", "AfterInverse", "SubeventInverse"}

// AllRelations lists every relation type in class-index order.
var AllRelations = []RelationType{Root, Coreference, After, Subevent, AfterInverse, SubeventInverse}

func (r RelationType) String() string {
	if r < 0 || r >= NumRelations {
		return fmt.Sprintf("RelationType(%d)", int(r))
	}
	return relationNames[r]
}

// Extended is true for the relation types other than Root and Coreference.
func (r RelationType) Extended() bool {
	switch r {
	case Root, Coreference:
		return false
	case After, Subevent, AfterInverse, SubeventInverse:
		return true
	default:
		panic(fmt.Sprintf("Unknown relation type %d", int(r)))
	}
}

// IsInverse is true for the edge labels that point from governor back to
// dependent.
func (r RelationType) IsInverse() bool {
	return r == AfterInverse || r == SubeventInverse
}

// Inverse swaps an extended type with its inverse; other types map to
// themselves.
func (r RelationType) Inverse() RelationType {
	switch r {
	case After:
		return AfterInverse
	case AfterInverse:
		return After
	case Subevent:
		return SubeventInverse
	case SubeventInverse:
		return Subevent
	case Root, Coreference:
		return r
	default:
		panic(fmt.Sprintf("Unknown relation type %d", int(r)))
	}
}

// Base is the annotated relation type an edge label stands for.
func (r RelationType) Base() RelationType {
	if r.IsInverse() {
		return r.Inverse()
	}
	return r
}

// WithInverses follows every extended type in rels by its inverse, unless
// already listed.
func WithInverses(rels []RelationType) []RelationType {
	retval := make([]RelationType, 0, 2*len(rels))
	seen := make(map[RelationType]bool, 2*len(rels))
	add := func(r RelationType) {
		if !seen[r] {
			seen[r] = true
			retval = append(retval, r)
		}
	}
	for _, r := range rels {
		add(r)
		if r.Extended() {
			add(r.Inverse())
		}
	}
	return retval
}

func ParseRelation(name string) (RelationType, error) {
	for i, n := range relationNames {
		if n == name {
			return RelationType(i), nil
		}
	}
	return Root, errors.Wrapf(ErrUnknownRelation, "%q", name)
}

func ParseRelations(names []string) ([]RelationType, error) {
	retval := make([]RelationType, 0, len(names))
	for _, name := range names {
		rel, err := ParseRelation(name)
		if err != nil {
			return nil, err
		}
		retval = append(retval, rel)
	}
	return retval, nil
}

// ClassAlphabet enumerates the relation types so that a type's class index
// in a weight matrix equals its integer value.
func ClassAlphabet() *util.EnumSet {
	e := util.NewEnumSet(int(NumRelations))
	for _, r := range AllRelations {
		e.Add(r.String())
	}
	e.Frozen = true
	return e
}

// NodeKey is a typed identity of a candidate.
type NodeKey struct {
	Candidate int
	Type      string
}

// RootKey is the single key of the virtual root node.
var RootKey = NodeKey{Candidate: -1, Type: ROOT_TYPE}

func (k NodeKey) IsRoot() bool {
	return k.Candidate < 0
}

// Node is the mention graph index of the key's candidate; the root is node 0.
func (k NodeKey) Node() int {
	return k.Candidate + 1
}

func (k NodeKey) String() string {
	if k.IsRoot() {
		return ROOT_TYPE
	}
	return fmt.Sprintf("%d:%s", k.Candidate, k.Type)
}

// Less orders keys by candidate, then type.
func (k NodeKey) Less(other NodeKey) bool {
	if k.Candidate != other.Candidate {
		return k.Candidate < other.Candidate
	}
	return k.Type < other.Type
}
