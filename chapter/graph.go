package chapter

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Graph is a mapping from chapter id to chapter. The zero value is not
// usable; create graphs with NewGraph.
//
// A Graph is not safe for concurrent mutation. Callers that share one across
// goroutines should Clone it and mutate the copy.
type Graph struct {
	chapters map[ID]*Chapter
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{chapters: make(map[ID]*Chapter)}
}

// Len returns the number of chapters.
func (g *Graph) Len() int {
	return len(g.chapters)
}

// Has reports whether id is present.
func (g *Graph) Has(id ID) bool {
	_, ok := g.chapters[id]
	return ok
}

// IDs returns all chapter ids in ascending order.
func (g *Graph) IDs() []ID {
	return slices.Sorted(maps.Keys(g.chapters))
}

// MaxID returns the largest id in the graph, or None when it is empty.
func (g *Graph) MaxID() ID {
	highest := None
	for id := range g.chapters {
		if id > highest {
			highest = id
		}
	}
	return highest
}

// Get returns a copy of the chapter with the given id.
func (g *Graph) Get(id ID) (Chapter, error) {
	c, ok := g.chapters[id]
	if !ok {
		return Chapter{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.clone(), nil
}

// Insert adds a new chapter. Its parent and every id in its relation lists
// must already be present, and its parent must have a smaller id, which keeps
// parent links acyclic.
func (g *Graph) Insert(c Chapter) error {
	if c.ID <= None {
		return fmt.Errorf("%w: chapter id %d is not positive", ErrInvariantViolation, c.ID)
	}
	if g.Has(c.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
	}
	if c.Parent != None {
		if !g.Has(c.Parent) {
			return fmt.Errorf("%w: parent %s of chapter %s does not exist", ErrInvariantViolation, c.Parent, c.ID)
		}
		if c.Parent >= c.ID {
			return fmt.Errorf("%w: parent %s of chapter %s is not older", ErrInvariantViolation, c.Parent, c.ID)
		}
	}
	for _, kind := range []Relation{Children, Siblings, Cousins} {
		list, _ := c.relation(kind)
		for _, target := range *list {
			if target == c.ID {
				return fmt.Errorf("%w: chapter %s lists itself in %s", ErrInvariantViolation, c.ID, kind)
			}
			if !g.Has(target) {
				return fmt.Errorf("%w: chapter %s lists unknown %s %s", ErrInvariantViolation, c.ID, kind, target)
			}
		}
	}

	stored := c.clone()
	g.chapters[c.ID] = &stored
	return nil
}

// AppendRelation appends target to one relation list of chapter id.
// Siblings and cousins are sets: appending a present target is a no-op.
func (g *Graph) AppendRelation(id ID, kind Relation, target ID) error {
	c, ok := g.chapters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t, ok := g.chapters[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	list, ok := c.relation(kind)
	if !ok {
		return fmt.Errorf("%w: unknown relation %q", ErrInvariantViolation, kind)
	}
	if id == target {
		return fmt.Errorf("%w: chapter %s cannot be its own %s", ErrInvariantViolation, id, kind)
	}
	if kind == Children && t.Parent != id {
		return fmt.Errorf("%w: chapter %s is not a child of %s", ErrInvariantViolation, target, id)
	}
	if containsID(*list, target) {
		if kind == Children {
			return fmt.Errorf("%w: chapter %s is already a child of %s", ErrInvariantViolation, target, id)
		}
		return nil
	}
	*list = append(*list, target)
	return nil
}

// SetSummary caches a condensation of a chapter's content.
func (g *Graph) SetSummary(id ID, summary string) error {
	c, ok := g.chapters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.Summary = summary
	return nil
}

// Path returns the chapters from the root of id's tree down to id.
func (g *Graph) Path(id ID) ([]Chapter, error) {
	var path []Chapter
	for cur := id; cur != None; {
		c, ok := g.chapters[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, cur)
		}
		if len(path) >= len(g.chapters) {
			return nil, fmt.Errorf("%w: parent chain of %s does not terminate", ErrInvariantViolation, id)
		}
		path = append(path, c.clone())
		cur = c.Parent
	}
	slices.Reverse(path)
	return path, nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := &Graph{chapters: make(map[ID]*Chapter, len(g.chapters))}
	for id, c := range g.chapters {
		cp := c.clone()
		out.chapters[id] = &cp
	}
	return out
}

// Validate checks the whole graph: every parent exists and parent chains
// terminate, every child links back to its parent, siblings are mutual and
// share a parent, and no chapter relates to itself or to a missing chapter.
func (g *Graph) Validate() error {
	for _, id := range g.IDs() {
		c := g.chapters[id]
		if c.ID != id {
			return fmt.Errorf("%w: chapter stored under %s claims id %s", ErrInvariantViolation, id, c.ID)
		}
		if c.Parent != None && !g.Has(c.Parent) {
			return fmt.Errorf("%w: parent %s of chapter %s does not exist", ErrInvariantViolation, c.Parent, id)
		}
		if _, err := g.Path(id); err != nil {
			return err
		}
		for _, kind := range []Relation{Children, Siblings, Cousins} {
			list, _ := c.relation(kind)
			for _, target := range *list {
				t, ok := g.chapters[target]
				if !ok {
					return fmt.Errorf("%w: chapter %s lists unknown %s %s", ErrInvariantViolation, id, kind, target)
				}
				if target == id {
					return fmt.Errorf("%w: chapter %s lists itself in %s", ErrInvariantViolation, id, kind)
				}
				switch kind {
				case Children:
					if t.Parent != id {
						return fmt.Errorf("%w: child %s of %s has parent %s", ErrInvariantViolation, target, id, t.Parent)
					}
				case Siblings:
					if !containsID(t.Siblings, id) {
						return fmt.Errorf("%w: sibling link %s -> %s is not mutual", ErrInvariantViolation, id, target)
					}
					if t.Parent != c.Parent {
						return fmt.Errorf("%w: siblings %s and %s have different parents", ErrInvariantViolation, id, target)
					}
				}
			}
		}
	}
	return nil
}

// MarshalJSON encodes the graph as an object keyed by chapter id.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := make(map[string]Chapter, len(g.chapters))
	for id, c := range g.chapters {
		out[id.String()] = c.clone()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a graph written by MarshalJSON and validates it.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw map[string]Chapter
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	chapters := make(map[ID]*Chapter, len(raw))
	for key, c := range raw {
		id, err := ParseID(key)
		if err != nil {
			return err
		}
		if id == None {
			return fmt.Errorf("%w: chapter stored under reserved id %q", ErrInvariantViolation, key)
		}
		c.ID = id
		c = c.clone()
		chapters[id] = &c
	}
	decoded := &Graph{chapters: chapters}
	if err := decoded.Validate(); err != nil {
		return err
	}
	g.chapters = chapters
	return nil
}
