package models

import (
	"time"

	"github.com/goccy/go-json"
)

// ── Bookmarks ───────────────────────────────────────────

// Bookmark is a saved entity. It serializes flat: the entity's fields plus
// bookmarkedAt and bookmarkId.
type Bookmark struct {
	Entity
	BookmarkedAt time.Time `json:"bookmarkedAt"`
	BookmarkID   string    `json:"bookmarkId"`
}

func (b Bookmark) MarshalJSON() ([]byte, error) {
	out := b.Entity.fields()
	out["bookmarkedAt"] = b.BookmarkedAt.UTC().Format(time.RFC3339Nano)
	out["bookmarkId"] = b.BookmarkID
	return json.Marshal(out)
}

// UnmarshalJSON never fails on a bad bookmarkedAt; the record keeps a zero
// time instead.
func (b *Bookmark) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var ts time.Time
	if s, ok := raw["bookmarkedAt"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ts = parsed
		}
	}
	id := looseString(raw["bookmarkId"])
	delete(raw, "bookmarkedAt")
	delete(raw, "bookmarkId")

	*b = Bookmark{Entity: entityFromMap(raw), BookmarkedAt: ts, BookmarkID: id}
	return nil
}

// BookmarkStats summarizes a bookmark collection.
type BookmarkStats struct {
	TotalBookmarks  int        `json:"totalBookmarks"`
	Categories      []string   `json:"categories"`
	RecentBookmarks []Bookmark `json:"recentBookmarks"`
	OldestBookmark  *Bookmark  `json:"oldestBookmark"`
}

// BookmarkExport is the document produced by export and accepted by import.
type BookmarkExport struct {
	Bookmarks  []Bookmark `json:"bookmarks"`
	ExportDate time.Time  `json:"exportDate"`
	TotalCount int        `json:"totalCount"`
}

// ImportResult reports the outcome of a bookmark import. Failures are values,
// not errors.
type ImportResult struct {
	Success  bool   `json:"success"`
	Imported int    `json:"imported,omitempty"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message"`
}

type ToggleBookmarkResponse struct {
	Name       string `json:"name"`
	Bookmarked bool   `json:"bookmarked"`
}
