package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Category groups blogs. BlogCount is only populated by the categories listing.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BlogCount   int    `json:"blog_count,omitempty"`
}

// Blog is a post as served by the backend. The client never validates this
// shape; reconciliation only relies on ID and the two counters.
type Blog struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	CreatedAt   Timestamp `json:"created_at"`
	Creator     User      `json:"creator"`
	Category    Category  `json:"category"`
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
}

// BlogInput is the body of create and update requests.
type BlogInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body"`
	CategoryID  int64  `json:"category_id"`
}

// Timestamp accepts the datetime layouts the backend emits, with or without a
// zone offset. Values without an offset are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
