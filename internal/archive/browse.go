package archive

import (
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/community-archive/internal/models"
)

// ViewMode tells which browse operation produced a view.
type ViewMode string

const (
	ViewAll      ViewMode = "all"
	ViewCategory ViewMode = "category"
	ViewSearch   ViewMode = "search"
)

// View is a filtered projection of the listing snapshot.
type View struct {
	Materials    []models.Material
	ActiveFilter string
	Query        string
	Mode         ViewMode
}

// Heading is the title shown above the view.
func (v View) Heading() string {
	switch v.Mode {
	case ViewCategory:
		return models.SectionLabel(v.ActiveFilter)
	case ViewSearch:
		return `Search Results: "` + v.Query + `"`
	default:
		return "All Materials"
	}
}

// EmptyMessage is shown when the view has no materials.
func (v View) EmptyMessage() string {
	if v.Mode == ViewCategory {
		return fmt.Sprintf("No materials in %s yet.", v.ActiveFilter)
	}
	return "No materials archived yet."
}

// Browser filters and searches the listing snapshot. It never mutates it.
type Browser struct {
	listing *ListingStore

	mu     sync.Mutex
	filter string
}

// NewBrowser returns a browser over listing.
func NewBrowser(listing *ListingStore) *Browser {
	return &Browser{listing: listing}
}

// ByCategory keeps materials whose section equals section exactly and makes
// it the active filter.
func (b *Browser) ByCategory(section string) View {
	b.setFilter(section)
	return categoryView(b.listing.All(), section)
}

// Search matches the trimmed, case-folded query as a substring of title,
// author, subsection or description. It clears the active filter.
func (b *Browser) Search(query string) View {
	b.setFilter("")
	q := strings.ToLower(strings.TrimSpace(query))
	all := b.listing.All()
	if q == "" {
		return View{Materials: all, Mode: ViewAll}
	}

	matches := make([]models.Material, 0, len(all))
	for _, m := range all {
		if matchesQuery(m, q) {
			matches = append(matches, m)
		}
	}
	return View{Materials: matches, Query: q, Mode: ViewSearch}
}

// ShowAll clears the active filter and returns the full snapshot.
func (b *Browser) ShowAll() View {
	b.setFilter("")
	return View{Materials: b.listing.All(), Mode: ViewAll}
}

// Current re-applies the active filter to the latest snapshot.
func (b *Browser) Current() View {
	filter := b.ActiveFilter()
	if filter == "" {
		return View{Materials: b.listing.All(), Mode: ViewAll}
	}
	return categoryView(b.listing.All(), filter)
}

// ActiveFilter returns the selected section, or "" for none.
func (b *Browser) ActiveFilter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

func (b *Browser) setFilter(section string) {
	b.mu.Lock()
	b.filter = section
	b.mu.Unlock()
}

func categoryView(all []models.Material, section string) View {
	matches := make([]models.Material, 0, len(all))
	for _, m := range all {
		if m.Section == section {
			matches = append(matches, m)
		}
	}
	return View{Materials: matches, ActiveFilter: section, Mode: ViewCategory}
}

func matchesQuery(m models.Material, q string) bool {
	for _, field := range []string{m.Title, m.Author, m.Subsection, m.Description} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
