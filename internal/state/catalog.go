// Package state holds the File Catalog: the last file list fetched from the
// server.
package state

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/easyfiletransfer/eft/internal/events"
	"github.com/easyfiletransfer/eft/internal/models"
)

// Catalog holds the remote file list in server order.
//
// Its contents are only ever replaced as a whole. A single owner refreshes
// it (core.Engine); everyone else reads copies. Thread-safe for concurrent
// access.
type Catalog struct {
	eventBus *events.EventBus

	items     []models.FileRecord
	updatedAt time.Time
	lastError error

	mu sync.RWMutex
}

// NewCatalog creates an empty catalog publishing changes on eventBus
// (may be nil).
func NewCatalog(eventBus *events.EventBus) *Catalog {
	return &Catalog{
		eventBus: eventBus,
		items:    make([]models.FileRecord, 0),
	}
}

// Items returns a copy of the current records.
func (c *Catalog) Items() []models.FileRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]models.FileRecord, len(c.items))
	copy(result, c.items)
	return result
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Find returns the record named name.
func (c *Catalog) Find(name string) (models.FileRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, item := range c.items {
		if item.Name == name {
			return item, true
		}
	}
	return models.FileRecord{}, false
}

// Replace swaps in a freshly fetched list and publishes a change event.
func (c *Catalog) Replace(items []models.FileRecord) {
	fresh := make([]models.FileRecord, len(items))
	copy(fresh, items)

	c.mu.Lock()
	c.items = fresh
	c.updatedAt = time.Now()
	c.lastError = nil
	c.mu.Unlock()

	c.eventBus.Publish(&events.CatalogChangedEvent{
		BaseEvent: events.NewBase(events.EventCatalogChanged),
		Count:     len(fresh),
	})
}

// SetError records a failed refresh. The contents are kept.
func (c *Catalog) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err
}

// LastError returns the error of the last refresh, nil if it succeeded.
func (c *Catalog) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// UpdatedAt returns when the contents were last replaced.
func (c *Catalog) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Sort keys for Sorted.
const (
	SortNone = ""
	SortName = "name"
	SortSize = "size"
	SortDate = "date"
)

// Sorted returns a sorted copy of the records. The catalog itself keeps
// server order.
func (c *Catalog) Sorted(sortBy string, ascending bool) []models.FileRecord {
	items := c.Items()
	if sortBy == SortNone {
		return items
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !ascending {
			a, b = b, a
		}
		switch sortBy {
		case SortSize:
			return a.SizeKB() < b.SizeKB()
		case SortDate:
			// The server formats dates so they sort lexically.
			return a.LastModified < b.LastModified
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	})
	return items
}
