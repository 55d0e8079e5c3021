package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lmokoena/marketscout/internal/models"
)

// CollectionStore keeps one pretty-printed JSON document per named
// collection under a fixed directory. Documents are read and replaced
// wholesale; the last writer wins. Writes go through a temp file and
// rename so a crash never leaves a partially written document.
type CollectionStore struct {
	mu  sync.RWMutex
	dir string
}

func NewCollectionStore(dir string) (*CollectionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.NewScrapeError(models.ErrPersistenceIO, "failed to create data directory", err)
	}
	return &CollectionStore{dir: dir}, nil
}

// Get returns the raw JSON document for a collection, or "[]" when the
// collection has never been written.
func (cs *CollectionStore) Get(name string) (json.RawMessage, error) {
	path, err := cs.path(name)
	if err != nil {
		return nil, err
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return json.RawMessage("[]"), nil
	}
	if err != nil {
		return nil, models.NewScrapeError(models.ErrPersistenceIO, "failed to read collection "+name, err)
	}
	if !json.Valid(data) {
		return nil, models.NewScrapeError(models.ErrPersistenceIO, "collection "+name+" is corrupted", nil)
	}
	return json.RawMessage(data), nil
}

// Put replaces a collection document wholesale.
func (cs *CollectionStore) Put(name string, doc any) error {
	path, err := cs.path(name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return models.NewScrapeError(models.ErrPersistenceIO, "failed to encode collection "+name, err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	return writeAtomic(path, data, name)
}

func (cs *CollectionStore) path(name string) (string, error) {
	// Collection names come from request paths; refuse anything that
	// would escape the data directory.
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", models.NewScrapeError(models.ErrPersistenceIO, "invalid collection name "+name, nil)
	}
	return filepath.Join(cs.dir, name+".json"), nil
}

// HistoryStore keeps one JSON array of daily snapshots per product
// identifier. The series grows by append, holds at most one entry per
// calendar day, and is capped to the most recent 365 entries.
type HistoryStore struct {
	mu  sync.Mutex
	dir string
}

const historyCap = 365

func NewHistoryStore(dir string) (*HistoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.NewScrapeError(models.ErrPersistenceIO, "failed to create history directory", err)
	}
	return &HistoryStore{dir: dir}, nil
}

// Get returns a product's stored history, oldest first, or an empty
// slice when the product has never been tracked.
func (hs *HistoryStore) Get(id string) ([]models.HistoryEntry, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.load(id)
}

// Append stores a new datapoint and returns the resulting entry count.
// A missing date is stamped with the current time. When the last stored
// entry falls on the same calendar day the append is skipped and the
// existing entry kept, so re-scraping a product twice in one day never
// produces a duplicate datapoint. Appending past the cap evicts the
// oldest entries.
func (hs *HistoryStore) Append(id string, entry models.HistoryEntry) (int, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	history, err := hs.load(id)
	if err != nil {
		return 0, err
	}

	if entry.Date.IsZero() {
		entry.Date = timeNow()
	}

	if n := len(history); n > 0 && sameDay(history[n-1].Date, entry.Date) {
		return n, nil
	}

	history = append(history, entry)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return 0, models.NewScrapeError(models.ErrPersistenceIO, "failed to encode history for "+id, err)
	}
	if err := writeAtomic(hs.path(id), data, id); err != nil {
		return 0, err
	}
	return len(history), nil
}

func (hs *HistoryStore) load(id string) ([]models.HistoryEntry, error) {
	data, err := os.ReadFile(hs.path(id))
	if os.IsNotExist(err) {
		return []models.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, models.NewScrapeError(models.ErrPersistenceIO, "failed to read history for "+id, err)
	}

	var history []models.HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, models.NewScrapeError(models.ErrPersistenceIO, "history for "+id+" is corrupted", err)
	}
	return history, nil
}

func (hs *HistoryStore) path(id string) string {
	return filepath.Join(hs.dir, filepath.Base(id)+".json")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// writeAtomic writes through a temp file and rename so readers never
// observe a half-written document.
func writeAtomic(path string, data []byte, name string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return models.NewScrapeError(models.ErrPersistenceIO, "failed to write "+name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return models.NewScrapeError(models.ErrPersistenceIO, fmt.Sprintf("failed to commit %s", name), err)
	}
	return nil
}

// timeNow is swapped out by tests.
var timeNow = time.Now
