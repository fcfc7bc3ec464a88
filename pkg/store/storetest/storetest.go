// Package storetest provides a conformance suite for store.Collection
// implementations.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/reactflow/internal/testutil"
	"github.com/vnykmshr/reactflow/pkg/store"
)

// Item is the document type used by the suite.
type Item struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"ownerId"`
	Label   string  `json:"label"`
	Total   float64 `json:"total"`
}

func (i Item) DocumentID() string { return i.ID }

func (i Item) WithDocumentID(id string) Item {
	i.ID = id
	return i
}

// Factory returns an empty collection of Items for one test.
type Factory func(t *testing.T) store.Collection[Item]

// Run exercises the Collection contract against collections built by newCollection.
func Run(t *testing.T, newCollection Factory) {
	t.Run("SaveAssignsID", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		saved, ok, err := c.Save(Item{Label: "first"}).Block(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "first", saved.Label)

		found, ok, err := c.FindOneWhere(store.IDField, saved.ID).Block(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, saved, found)
	})

	t.Run("SaveKeepsGivenID", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		saved, _, err := c.Save(Item{ID: "fixed", Label: "a"}).Block(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fixed", saved.ID)
	})

	t.Run("SaveIsLazy", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		pending := c.Save(Item{ID: "lazy"})

		all, err := c.FindAll().ToSlice(ctx)
		require.NoError(t, err)
		assert.Empty(t, all, "nothing is stored before subscription")

		_, _, err = pending.Block(ctx)
		require.NoError(t, err)

		all, err = c.FindAll().ToSlice(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("FindAllInInsertionOrder", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		for _, id := range []string{"c", "a", "b"} {
			_, _, err := c.Save(Item{ID: id, Label: "v1"}).Block(ctx)
			require.NoError(t, err)
		}
		// overwriting keeps the original position
		_, _, err := c.Save(Item{ID: "a", Label: "v2"}).Block(ctx)
		require.NoError(t, err)

		all, err := c.FindAll().ToSlice(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"c", "a", "b"}, ids(all))
		assert.Equal(t, "v2", all[1].Label)
	})

	t.Run("FindWhere", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		seed(t, c,
			Item{ID: "o1", OwnerID: "1", Total: 10},
			Item{ID: "o2", OwnerID: "1", Total: 5},
			Item{ID: "o3", OwnerID: "2", Total: 7},
		)

		owned, err := c.FindWhere("ownerId", "1").ToSlice(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"o1", "o2"}, ids(owned))

		byTotal, err := c.FindWhere("total", 7).ToSlice(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"o3"}, ids(byTotal))

		none, err := c.FindWhere("ownerId", "404").ToSlice(ctx)
		require.NoError(t, err)
		assert.Empty(t, none)

		unknownField, err := c.FindWhere("nope", "1").ToSlice(ctx)
		require.NoError(t, err)
		assert.Empty(t, unknownField)
	})

	t.Run("FindWhereSeesUpdates", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		seed(t, c, Item{ID: "o1", OwnerID: "1"})
		seed(t, c, Item{ID: "o1", OwnerID: "2"})

		old, err := c.FindWhere("ownerId", "1").ToSlice(ctx)
		require.NoError(t, err)
		assert.Empty(t, old)

		moved, err := c.FindWhere("ownerId", "2").ToSlice(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"o1"}, ids(moved))
	})

	t.Run("FindOneWhereEmpty", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		_, ok, err := c.FindOneWhere(store.IDField, "missing").Block(ctx)
		require.NoError(t, err, "a missing document is not an error")
		assert.False(t, ok)
	})

	t.Run("QueriesAreRestartable", func(t *testing.T) {
		c := newCollection(t)
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()

		all := c.FindAll()
		seed(t, c, Item{ID: "x"})
		first, err := all.ToSlice(ctx)
		require.NoError(t, err)

		seed(t, c, Item{ID: "y"})
		second, err := all.ToSlice(ctx)
		require.NoError(t, err)

		assert.Len(t, first, 1)
		assert.Len(t, second, 2)
	})
}

func seed(t *testing.T, c store.Collection[Item], items ...Item) {
	t.Helper()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	for _, it := range items {
		_, _, err := c.Save(it).Block(ctx)
		require.NoError(t, err)
	}
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
