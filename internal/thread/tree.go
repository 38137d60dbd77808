// Package thread assembles the flat comment rows of one discussion into a
// reply tree.
//
// Nodes live in an arena keyed by ID with a secondary index from parent ID to
// child IDs. Materialization walks the arena with an explicit stack, so an
// adversarially deep reply chain cannot exhaust the goroutine stack; the walk
// stops expanding at a configurable depth and flags the cut nodes.
package thread

import (
	"fmt"
	"sort"

	"kidney-story/internal/domain"

	"github.com/google/uuid"
)

// DefaultMaxDepth bounds materialization when the caller passes a
// non-positive depth.
const DefaultMaxDepth = 64

// Node is a materialized comment with its replies.
type Node struct {
	domain.Comment
	Replies []*Node `json:"replies"`
	// Truncated is set when the node has replies that were not expanded
	// because the depth limit was reached.
	Truncated bool `json:"truncated,omitempty"`
}

// Tree is an immutable index over the comments of one discussion.
type Tree struct {
	discussionID uuid.UUID
	newestFirst  bool
	nodes        map[uuid.UUID]domain.Comment
	children     map[uuid.UUID][]uuid.UUID
	roots        []uuid.UUID
}

// Build indexes comments. Every comment must belong to discussionID and every
// parent reference must resolve to a comment of the same set, otherwise
// domain.ErrParentMismatch is returned.
func Build(discussionID uuid.UUID, newestFirst bool, comments []domain.Comment) (*Tree, error) {
	t := &Tree{
		discussionID: discussionID,
		newestFirst:  newestFirst,
		nodes:        make(map[uuid.UUID]domain.Comment, len(comments)),
		children:     make(map[uuid.UUID][]uuid.UUID),
	}

	for _, c := range comments {
		if c.DiscussionID != discussionID {
			return nil, fmt.Errorf("comment %s: %w", c.ID, domain.ErrParentMismatch)
		}
		t.nodes[c.ID] = c
	}

	for _, c := range comments {
		if c.ParentID == nil {
			t.roots = append(t.roots, c.ID)
			continue
		}
		if _, ok := t.nodes[*c.ParentID]; !ok {
			return nil, fmt.Errorf("comment %s: %w", c.ID, domain.ErrParentMismatch)
		}
		t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
	}

	t.sortIDs(t.roots)
	for _, ids := range t.children {
		t.sortIDs(ids)
	}
	return t, nil
}

func (t *Tree) sortIDs(ids []uuid.UUID) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if t.newestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// DiscussionID returns the discussion the tree was built for.
func (t *Tree) DiscussionID() uuid.UUID { return t.discussionID }

// Len returns the number of comments in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Get returns the comment with the given ID.
func (t *Tree) Get(id uuid.UUID) (domain.Comment, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

// TopLevel returns the comments without a parent in discussion order.
func (t *Tree) TopLevel() []domain.Comment {
	return t.collect(t.roots)
}

// Replies returns the direct replies of id. The result is never nil.
func (t *Tree) Replies(id uuid.UUID) []domain.Comment {
	return t.collect(t.children[id])
}

func (t *Tree) collect(ids []uuid.UUID) []domain.Comment {
	out := make([]domain.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// Materialize expands every top-level comment down to maxDepth levels.
// Top-level comments are at depth 1.
func (t *Tree) Materialize(maxDepth int) []*Node {
	return t.expand(t.roots, maxDepth)
}

// Subtree expands the comment id and its replies down to maxDepth levels,
// counting id itself as depth 1.
func (t *Tree) Subtree(id uuid.UUID, maxDepth int) (*Node, bool) {
	if _, ok := t.nodes[id]; !ok {
		return nil, false
	}
	return t.expand([]uuid.UUID{id}, maxDepth)[0], true
}

type frame struct {
	node  *Node
	depth int
}

func (t *Tree) expand(start []uuid.UUID, maxDepth int) []*Node {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	out := make([]*Node, 0, len(start))
	stack := make([]frame, 0, len(start))
	for _, id := range start {
		n := &Node{Comment: t.nodes[id], Replies: []*Node{}}
		out = append(out, n)
		stack = append(stack, frame{node: n, depth: 1})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := t.children[f.node.ID]
		if len(kids) == 0 {
			continue
		}
		if f.depth >= maxDepth {
			f.node.Truncated = true
			continue
		}
		f.node.Replies = make([]*Node, 0, len(kids))
		for _, id := range kids {
			child := &Node{Comment: t.nodes[id], Replies: []*Node{}}
			f.node.Replies = append(f.node.Replies, child)
			stack = append(stack, frame{node: child, depth: f.depth + 1})
		}
	}
	return out
}

// Descendants returns the IDs of every comment below id, which are removed
// together with id.
func (t *Tree) Descendants(id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{id: true}
	stack := append([]uuid.UUID(nil), t.children[id]...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		stack = append(stack, t.children[cur]...)
	}
	return out
}
