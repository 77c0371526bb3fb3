// Package chapter holds the branching chapter graph of a story.
//
// Chapters are identified by positive integers allocated in creation order.
// Every chapter except the first of a story points at the chapter it follows
// from; alternate versions of a chapter are linked as siblings and alternate
// continuations of the same chapter are linked as cousins.
package chapter

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ID identifies a chapter within one story.
type ID int

// None is the parent of a root chapter and the value of a pointer into an
// empty graph.
const None ID = 0

// legacyNone is how None is written in snapshots.
const legacyNone = "-1"

// String formats the id the way it appears in snapshots and prompts.
func (id ID) String() string {
	if id == None {
		return legacyNone
	}
	return strconv.Itoa(int(id))
}

// ParseID parses an id from its string form. "-1", "0" and "" parse to None.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == legacyNone {
		return None, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return None, fmt.Errorf("invalid chapter id %q: %w", s, err)
	}
	if n < 0 {
		return None, fmt.Errorf("invalid chapter id %q: negative", s)
	}
	return ID(n), nil
}

// MarshalJSON encodes the id as a decimal string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts both string and numeric ids.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("invalid chapter id %s", string(data))
		}
		s = strconv.Itoa(n)
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Relation names one of the relation lists of a chapter.
type Relation string

const (
	Children Relation = "children"
	Siblings Relation = "siblings"
	Cousins  Relation = "cousins"
)

// Chapter is one generated unit of story prose plus its graph relations.
//
// Content, Title and Parent are fixed once the chapter is inserted. Children
// lists continuations in creation order, Siblings lists alternate versions of
// this chapter, Cousins lists alternate continuations of the parent that
// existed when this chapter was created.
type Chapter struct {
	ID       ID     `json:"-"`
	Content  string `json:"content"`
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	Parent   ID     `json:"parent"`
	Children []ID   `json:"children"`
	Siblings []ID   `json:"siblings"`
	Cousins  []ID   `json:"cousins"`
}

// IsRoot reports whether the chapter starts a story.
func (c Chapter) IsRoot() bool {
	return c.Parent == None
}

func (c Chapter) clone() Chapter {
	c.Children = cloneIDs(c.Children)
	c.Siblings = cloneIDs(c.Siblings)
	c.Cousins = cloneIDs(c.Cousins)
	return c
}

func (c *Chapter) relation(kind Relation) (*[]ID, bool) {
	switch kind {
	case Children:
		return &c.Children, true
	case Siblings:
		return &c.Siblings, true
	case Cousins:
		return &c.Cousins, true
	}
	return nil, false
}

// cloneIDs never returns nil so relation lists always encode as [].
func cloneIDs(ids []ID) []ID {
	out := make([]ID, len(ids))
	copy(out, ids)
	return out
}

func containsID(ids []ID, id ID) bool {
	return slices.Contains(ids, id)
}
