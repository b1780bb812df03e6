// ABOUTME: Tests for the comment arena index
// ABOUTME: Covers ancestor walks, subtree collection, and malformed parent chains

package comments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmesh/realtime-gateway/internal/store"
)

func comment(id string, parentID string) *store.Comment {
	c := &store.Comment{ID: id, PostID: "post-1", AuthorID: "author-" + id}
	if parentID != "" {
		c.ParentID = &parentID
	}
	return c
}

// thread:
//
//	a
//	├── b
//	│   └── d
//	└── c
//	e (separate root)
func buildTestArena() *Arena {
	return Build([]*store.Comment{
		comment("a", ""),
		comment("b", "a"),
		comment("c", "a"),
		comment("d", "b"),
		comment("e", ""),
	})
}

func TestArena_Roots(t *testing.T) {
	a := buildTestArena()
	assert.ElementsMatch(t, []string{"a", "e"}, a.Roots())
	assert.Equal(t, 5, a.Len())
}

func TestArena_Ancestors(t *testing.T) {
	a := buildTestArena()

	ancestors := a.Ancestors("d")
	require.Len(t, ancestors, 2)
	assert.Equal(t, "b", ancestors[0].ID, "nearest parent first")
	assert.Equal(t, "a", ancestors[1].ID)

	assert.Empty(t, a.Ancestors("a"), "root has no ancestors")
	assert.Empty(t, a.Ancestors("missing"))
}

func TestArena_Subtree(t *testing.T) {
	a := buildTestArena()

	ids := a.SubtreeIDs("a")
	assert.Len(t, ids, 4)
	assert.Equal(t, "a", ids[0], "subtree root comes first")
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, ids)

	assert.Equal(t, []string{"d"}, a.SubtreeIDs("d"), "leaf subtree is just itself")
	assert.Nil(t, a.Subtree("missing"))
}

func TestArena_OrphanedParent(t *testing.T) {
	// Parent not present in the arena: the comment becomes a root and
	// its ancestor walk stops there.
	a := Build([]*store.Comment{comment("x", "gone")})

	assert.Equal(t, []string{"x"}, a.Roots())
	assert.Empty(t, a.Ancestors("x"))
}

func TestArena_CyclicParents(t *testing.T) {
	// Corrupt data with a parent cycle must not loop forever.
	a := Build([]*store.Comment{
		comment("p", "q"),
		comment("q", "p"),
	})

	ancestors := a.Ancestors("p")
	assert.Len(t, ancestors, 1)
	assert.Equal(t, "q", ancestors[0].ID)

	ids := a.SubtreeIDs("p")
	assert.Contains(t, ids, "p")
}
