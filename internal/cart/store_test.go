package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LastWriteWins(t *testing.T) {
	store := NewStore(nil)

	store.Replace(Snapshot{Items: []Item{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}})
	store.Replace(Snapshot{Items: []Item{
		{ProductID: 3, Quantity: 5},
	}})

	got := store.Get()
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(3), got.Items[0].ProductID)
	assert.Equal(t, 5, got.BadgeCount())
}

func TestStore_ReplaceWithEmptySnapshot(t *testing.T) {
	store := NewStore(nil)

	store.Replace(Snapshot{Items: []Item{{ProductID: 1, Quantity: 2}}})
	store.Replace(Snapshot{})

	assert.Empty(t, store.Get().Items)
	assert.Equal(t, 0, store.Get().BadgeCount())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(nil)
	store.Replace(Snapshot{Items: []Item{{ProductID: 1, Quantity: 2}}})

	got := store.Get()
	got.Items[0].Quantity = 99

	assert.Equal(t, 2, store.Get().Items[0].Quantity)
}

func TestStore_ChangeHook(t *testing.T) {
	var seen []int
	store := NewStore(func(s Snapshot) {
		seen = append(seen, s.BadgeCount())
	})

	store.Replace(Snapshot{Items: []Item{{ProductID: 1, Quantity: 2}}})
	store.Replace(Snapshot{Items: []Item{{ProductID: 1, Quantity: 3}}})
	store.Clear()

	assert.Equal(t, []int{2, 3, 0}, seen)
}
