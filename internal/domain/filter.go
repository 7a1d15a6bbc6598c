package domain

import "time"

// RecordFilter narrows the corpus for browsing and analytics. Nil fields are ignored;
// string fields match case-insensitively anywhere in the column.
type RecordFilter struct {
	URL            *string         `json:"url,omitempty"`
	URLWithOwner   *string         `json:"urlWithOwner,omitempty"`
	WallOwner      *string         `json:"wallOwner,omitempty"`
	PostAuthor     *string         `json:"postAuthor,omitempty"`
	Text           *string         `json:"text,omitempty"`
	CommentURL     *string         `json:"commentUrl,omitempty"`
	AuthorName     *string         `json:"authorName,omitempty"`
	From           *time.Time      `json:"fromDateTime,omitempty"`
	To             *time.Time      `json:"toDateTime,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
}
