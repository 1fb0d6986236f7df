package state

import (
	"errors"
	"testing"
	"time"

	"github.com/easyfiletransfer/eft/internal/events"
	"github.com/easyfiletransfer/eft/internal/models"
)

func TestNewCatalog(t *testing.T) {
	catalog := NewCatalog(nil)

	if catalog.Len() != 0 || len(catalog.Items()) != 0 {
		t.Error("Initial items should be empty")
	}
	if !catalog.UpdatedAt().IsZero() {
		t.Error("UpdatedAt should be zero before the first refresh")
	}
}

func TestCatalogReplace(t *testing.T) {
	eventBus := events.NewEventBus(10)
	defer eventBus.Close()
	ch := eventBus.Subscribe(events.EventCatalogChanged)

	catalog := NewCatalog(eventBus)
	catalog.Replace([]models.FileRecord{
		{Name: "b.txt", Size: "1"},
		{Name: "a.txt", Size: "2"},
	})

	items := catalog.Items()
	if len(items) != 2 || items[0].Name != "b.txt" {
		t.Errorf("Catalog should keep server order, got %+v", items)
	}

	select {
	case ev := <-ch:
		changed, ok := ev.(*events.CatalogChangedEvent)
		if !ok || changed.Count != 2 {
			t.Errorf("Unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("No CatalogChangedEvent published")
	}

	catalog.Replace([]models.FileRecord{{Name: "c.txt"}})
	if _, ok := catalog.Find("a.txt"); ok {
		t.Error("Replace should drop records missing from the new list")
	}
	if rec, ok := catalog.Find("c.txt"); !ok || rec.Name != "c.txt" {
		t.Error("c.txt should be found")
	}
}

func TestCatalogItemsAreCopies(t *testing.T) {
	catalog := NewCatalog(nil)
	input := []models.FileRecord{{Name: "a.txt"}}
	catalog.Replace(input)

	input[0].Name = "mutated"
	got := catalog.Items()
	got[0].Name = "mutated too"

	if rec, _ := catalog.Find("a.txt"); rec.Name != "a.txt" {
		t.Error("Catalog contents must not alias caller slices")
	}
}

func TestCatalogErrorKeepsContents(t *testing.T) {
	catalog := NewCatalog(nil)
	catalog.Replace([]models.FileRecord{{Name: "a.txt"}})

	refreshErr := errors.New("list failed")
	catalog.SetError(refreshErr)

	if catalog.LastError() != refreshErr {
		t.Errorf("LastError = %v", catalog.LastError())
	}
	if catalog.Len() != 1 {
		t.Error("A failed refresh must keep previous contents")
	}

	catalog.Replace(nil)
	if catalog.LastError() != nil {
		t.Error("A successful refresh clears the error")
	}
}

func TestCatalogSorted(t *testing.T) {
	catalog := NewCatalog(nil)
	catalog.Replace([]models.FileRecord{
		{Name: "beta", Size: "1,024", LastModified: "2024-02-01"},
		{Name: "Alpha", Size: "5", LastModified: "2024-03-01"},
		{Name: "gamma", Size: "bad", LastModified: "2024-01-01"},
	})

	tests := []struct {
		sortBy    string
		ascending bool
		want      []string
	}{
		{SortNone, true, []string{"beta", "Alpha", "gamma"}},
		{SortName, true, []string{"Alpha", "beta", "gamma"}},
		{SortName, false, []string{"gamma", "beta", "Alpha"}},
		{SortSize, true, []string{"gamma", "Alpha", "beta"}},
		{SortDate, false, []string{"Alpha", "beta", "gamma"}},
	}

	for _, tt := range tests {
		got := catalog.Sorted(tt.sortBy, tt.ascending)
		for i, name := range tt.want {
			if got[i].Name != name {
				t.Errorf("Sorted(%q, %v)[%d] = %s, want %s", tt.sortBy, tt.ascending, i, got[i].Name, name)
			}
		}
	}

	if catalog.Items()[0].Name != "beta" {
		t.Error("Sorted must not reorder the catalog")
	}
}
