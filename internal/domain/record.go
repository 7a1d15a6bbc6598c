package domain

import "time"

// HeroRecord is a single social-media post stored in the corpus.
type HeroRecord struct {
	ID             int64          `db:"id"             json:"id"`
	URL            string         `db:"url"            json:"url"`
	URLWithOwner   string         `db:"url_with_owner" json:"urlWithOwner"`
	WallOwner      string         `db:"wall_owner"     json:"wallOwner"`
	PostAuthor     string         `db:"post_author"    json:"postAuthor"`
	DateTime       time.Time      `db:"date_time"      json:"dateTime"`
	Text           string         `db:"text"           json:"text"`
	Likes          int            `db:"likes"          json:"likes"`
	Reposts        int            `db:"reposts"        json:"reposts"`
	Comments       int            `db:"comments"       json:"comments"`
	Views          int            `db:"views"          json:"views"`
	CommentURL     *string        `db:"comment_url"    json:"commentUrl,omitempty"`
	AuthorName     string         `db:"author_name"    json:"authorName"`
	Subscribers    int            `db:"subscribers"    json:"subscribers"`
	Classification Classification `db:"classification" json:"classification"`
	ER             *float64       `db:"er"             json:"er,omitempty"`
	VR             *float64       `db:"vr"             json:"vr,omitempty"`
}

// MarkResults summarises a classification run.
type MarkResults struct {
	Processed        int                    `json:"markedCount"`
	NoHero           int64                  `json:"noHeroCount"`
	Unmarked         int                    `json:"unknownCategoryCount"`
	BatchesCommitted int                    `json:"batchesCommitted"`
	ByClassification map[Classification]int `json:"byClassification,omitempty"`
}

// IngestResult summarises a single ingestion pass.
type IngestResult struct {
	Fetched  int `json:"fetched"`
	Skipped  int `json:"skipped"`
	Inserted int `json:"inserted"`
}

// DailyMetric aggregates engagement for one calendar day.
type DailyMetric struct {
	Date    time.Time `db:"day"     json:"date"`
	VR      float64   `db:"vr"      json:"vr"`
	ER      float64   `db:"er"      json:"er"`
	Average float64   `db:"average" json:"average"`
}

// Page is a slice of records plus paging metadata.
type Page struct {
	Items      []HeroRecord `json:"items"`
	PageNumber int          `json:"pageNumber"`
	PageSize   int          `json:"pageSize"`
	TotalCount int          `json:"totalCount"`
}
