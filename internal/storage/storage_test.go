package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmokoena/marketscout/internal/models"
)

func TestCollectionRoundTrip(t *testing.T) {
	cs, err := NewCollectionStore(t.TempDir())
	require.NoError(t, err)

	doc := map[string]any{
		"products": []any{
			map[string]any{"title": "Wireless Mouse", "price": 299.0},
			map[string]any{"title": "Desk Lamp", "price": 450.0},
		},
		"updated": "2024-03-01",
	}

	require.NoError(t, cs.Put("products", doc))

	raw, err := cs.Get("products")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, doc, got)
}

func TestCollectionGetMissingReturnsEmptyDefault(t *testing.T) {
	cs, err := NewCollectionStore(t.TempDir())
	require.NoError(t, err)

	raw, err := cs.Get("settings")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}

func TestCollectionPutOverwritesWholesale(t *testing.T) {
	cs, err := NewCollectionStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cs.Put("suppliers", []string{"a", "b", "c"}))
	require.NoError(t, cs.Put("suppliers", []string{"d"}))

	raw, err := cs.Get("suppliers")
	require.NoError(t, err)
	assert.JSONEq(t, `["d"]`, string(raw))
}

func TestCollectionRejectsPathTraversal(t *testing.T) {
	cs, err := NewCollectionStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../escape", "a/b"} {
		_, err := cs.Get(name)
		var se *models.ScrapeError
		require.ErrorAs(t, err, &se, "name %q", name)
		assert.Equal(t, models.ErrPersistenceIO, se.Code)

		err = cs.Put(name, map[string]string{})
		assert.Error(t, err, "name %q", name)
	}
}

func TestCollectionWriteIsPrettyPrinted(t *testing.T) {
	dir := t.TempDir()
	cs, err := NewCollectionStore(dir)
	require.NoError(t, err)

	require.NoError(t, cs.Put("cart", map[string]int{"qty": 3}))

	data, err := os.ReadFile(filepath.Join(dir, "cart.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")
}

func TestCollectionCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	cs, err := NewCollectionStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{truncated"), 0o644))

	_, err = cs.Get("bad")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrPersistenceIO, se.Code)
}

func TestHistoryGetMissingReturnsEmpty(t *testing.T) {
	hs, err := NewHistoryStore(t.TempDir())
	require.NoError(t, err)

	entries, err := hs.Get("PLID12345")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryAppendStampsMissingDate(t *testing.T) {
	hs, err := NewHistoryStore(t.TempDir())
	require.NoError(t, err)

	fixed := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	count, err := hs.Append("PLID1", models.HistoryEntry{Price: 199})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entries, err := hs.Get("PLID1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Date.Equal(fixed))
}

func TestHistoryCapKeepsMostRecent365InOrder(t *testing.T) {
	hs, err := NewHistoryStore(t.TempDir())
	require.NoError(t, err)

	start := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 400; i++ {
		_, err := hs.Append("PLID2", models.HistoryEntry{
			Date:  start.AddDate(0, 0, i),
			Price: float64(i),
		})
		require.NoError(t, err)
	}

	entries, err := hs.Get("PLID2")
	require.NoError(t, err)
	require.Len(t, entries, 365)

	// Oldest 35 evicted; the remainder keep append order.
	assert.Equal(t, float64(35), entries[0].Price)
	assert.Equal(t, float64(399), entries[364].Price)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i].Date.After(entries[i-1].Date))
	}
}

func TestHistorySameDayAppendDeduped(t *testing.T) {
	hs, err := NewHistoryStore(t.TempDir())
	require.NoError(t, err)

	morning := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 6, 15, 20, 0, 0, 0, time.UTC)

	count, err := hs.Append("PLID3", models.HistoryEntry{Date: morning, Price: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = hs.Append("PLID3", models.HistoryEntry{Date: evening, Price: 120})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entries, err := hs.Get("PLID3")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// The first entry of the day wins.
	assert.Equal(t, 100.0, entries[0].Price)

	nextDay := time.Date(2024, 6, 16, 8, 0, 0, 0, time.UTC)
	count, err = hs.Append("PLID3", models.HistoryEntry{Date: nextDay, Price: 130})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHistoryCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	hs, err := NewHistoryStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "PLID4.json"), []byte("not json"), 0o644))

	_, err = hs.Get("PLID4")
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrPersistenceIO, se.Code)
}
