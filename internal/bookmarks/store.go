// Package bookmarks keeps a learner's saved pathogens and conditions.
package bookmarks

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/abx-learn/backend/internal/kvstore"
	"github.com/abx-learn/backend/internal/logging"
	"github.com/abx-learn/backend/internal/metrics"
	"github.com/abx-learn/backend/internal/models"
	"github.com/abx-learn/backend/internal/persist"
)

// DefaultKey is the store key the collection is kept under.
const DefaultKey = "bookmarkedConditions"

const recentLimit = 5

const (
	msgImportFailed   = "Failed to import bookmarks"
	msgImportFinished = "Successfully imported %d bookmarks"
)

// errInvalidFormat text is shown to learners as is.
var errInvalidFormat = errors.New("Invalid bookmark data format")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Store holds at most one bookmark per name. Every change is written to the
// backing kvstore as the whole list.
type Store struct {
	mu    sync.Mutex
	clock Clock
	list  *persist.Value[[]models.Bookmark]
	log   zerolog.Logger
}

func NewStore(kv kvstore.Store, key string) *Store {
	return NewStoreWithClock(kv, key, realClock{})
}

// NewStoreWithClock creates a Store with a custom clock (for testing).
func NewStoreWithClock(kv kvstore.Store, key string, clock Clock) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		clock: clock,
		list: persist.New(kv, key, func() []models.Bookmark {
			return []models.Bookmark{}
		}),
		log: logging.WithComponent("bookmarks"),
	}
}

// Watch keeps the collection in sync with writes announced by n.
func (s *Store) Watch(n kvstore.Notifier) func() {
	return s.list.Watch(n)
}

// Add saves entity unless a bookmark with the same name exists. Entities
// without a name are ignored.
func (s *Store) Add(entity models.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(entity)
}

func (s *Store) add(entity models.Entity) bool {
	if entity.Name == "" {
		return false
	}
	now := s.clock.Now()
	b := models.Bookmark{
		Entity:       entity,
		BookmarkedAt: now,
		BookmarkID:   entity.Name + "_" + strconv.FormatInt(now.UnixMilli(), 10),
	}
	added := false
	s.list.Update(func(list []models.Bookmark) []models.Bookmark {
		if indexOf(list, entity.Name) >= 0 {
			return list
		}
		added = true
		return append(list[:len(list):len(list)], b)
	})
	return added
}

// Remove deletes every bookmark named name.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(name)
}

func (s *Store) remove(name string) {
	s.list.Update(func(list []models.Bookmark) []models.Bookmark {
		if indexOf(list, name) < 0 {
			return list
		}
		kept := make([]models.Bookmark, 0, len(list))
		for _, b := range list {
			if b.Name != name {
				kept = append(kept, b)
			}
		}
		return kept
	})
}

// Toggle adds or removes entity and returns whether it is now bookmarked.
func (s *Store) Toggle(entity models.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entity.Name == "" {
		return false
	}
	if indexOf(s.list.Get(), entity.Name) >= 0 {
		s.remove(entity.Name)
		return false
	}
	return s.add(entity)
}

// IsBookmarked matches name exactly. An empty name is never bookmarked.
func (s *Store) IsBookmarked(name string) bool {
	if name == "" {
		return false
	}
	return indexOf(s.list.Get(), name) >= 0
}

// ByCategory returns bookmarks whose category equals category ignoring case.
func (s *Store) ByCategory(category string) []models.Bookmark {
	out := []models.Bookmark{}
	if category == "" {
		return out
	}
	for _, b := range s.list.Get() {
		if b.Category != "" && strings.EqualFold(b.Category, category) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Set([]models.Bookmark{})
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []models.Bookmark {
	return append([]models.Bookmark{}, s.list.Get()...)
}

// Stats summarizes the collection.
func (s *Store) Stats() models.BookmarkStats {
	list := s.list.Get()
	stats := models.BookmarkStats{
		TotalBookmarks:  len(list),
		Categories:      []string{},
		RecentBookmarks: []models.Bookmark{},
	}
	if len(list) == 0 {
		return stats
	}

	seen := make(map[string]bool)
	oldest := 0
	for i, b := range list {
		if b.Category != "" && !seen[b.Category] {
			seen[b.Category] = true
			stats.Categories = append(stats.Categories, b.Category)
		}
		if b.BookmarkedAt.Before(list[oldest].BookmarkedAt) {
			oldest = i
		}
	}
	o := list[oldest]
	stats.OldestBookmark = &o

	recent := append([]models.Bookmark{}, list...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].BookmarkedAt.After(recent[j].BookmarkedAt)
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	stats.RecentBookmarks = recent
	return stats
}

// Export returns the collection as an indented export document.
func (s *Store) Export() ([]byte, error) {
	list := s.All()
	doc := models.BookmarkExport{
		Bookmarks:  list,
		ExportDate: s.clock.Now(),
		TotalCount: len(list),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return data, nil
}

// Import loads an export document. With merge, bookmarks whose name is
// already saved are skipped; without it the collection is replaced as given.
// Failures are reported in the result, never as an error.
func (s *Store) Import(data []byte, merge bool) models.ImportResult {
	incoming, err := decodeImport(data)
	if err != nil {
		metrics.RecordImport(false)
		s.log.Warn().Err(err).Msg("bookmark import rejected")
		return models.ImportResult{Error: err.Error(), Message: msgImportFailed}
	}

	s.mu.Lock()
	if merge {
		s.list.Update(func(list []models.Bookmark) []models.Bookmark {
			out := append([]models.Bookmark{}, list...)
			for _, b := range incoming {
				if indexOf(out, b.Name) < 0 {
					out = append(out, b)
				}
			}
			return out
		})
	} else {
		s.list.Set(incoming)
	}
	s.mu.Unlock()

	metrics.RecordImport(true)
	s.log.Info().Int("count", len(incoming)).Bool("merge", merge).Msg("bookmarks imported")
	return models.ImportResult{
		Success:  true,
		Imported: len(incoming),
		Message:  fmt.Sprintf(msgImportFinished, len(incoming)),
	}
}

func decodeImport(data []byte) ([]models.Bookmark, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	fields, ok := doc.(map[string]any)
	if !ok {
		return nil, errInvalidFormat
	}
	if _, ok := fields["bookmarks"].([]any); !ok {
		return nil, errInvalidFormat
	}

	var env struct {
		Bookmarks []models.Bookmark `json:"bookmarks"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Bookmarks == nil {
		env.Bookmarks = []models.Bookmark{}
	}
	return env.Bookmarks, nil
}

func indexOf(list []models.Bookmark, name string) int {
	for i, b := range list {
		if b.Name == name {
			return i
		}
	}
	return -1
}
