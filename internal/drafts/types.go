package drafts

import "time"

// Draft is an autosaved copy of a page being edited, offered for
// restoration the next time the page is opened.
type Draft struct {
	PageID      string    `json:"page_id"`
	Content     string    `json:"content"`      // full document text
	HTMLContent string    `json:"html_content"` // serialized region
	CSSContent  string    `json:"css_content"`  // scoped stylesheet text
	Timestamp   time.Time `json:"timestamp"`
}

// Export records a page saved as a download.
type Export struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	FileName  string    `json:"file_name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportFilter controls which exports to return.
type ExportFilter struct {
	PageID string
	Limit  int
}
