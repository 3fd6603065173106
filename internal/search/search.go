package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	LogbookID string `json:"logbookId"`
	Date      string `json:"date"`
	Energy    string `json:"energy"`
	Snippet   string `json:"snippet"`
}

// Query describes a search request. Results never cross UserID.
type Query struct {
	UserID    string
	Text      string
	LogbookID string
	Limit     int
	Offset    int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entries into a search index.
type Indexer interface {
	IndexEntry(e EntryRecord) error
	DeleteEntry(id string) error
}

// EntryRecord is the data we index for an entry. Body joins every text field
// of the entry so legacy and custom fields search the same way.
type EntryRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	LogbookID string `json:"logbookId"`
	Date      string `json:"date"`
	Energy    string `json:"energy"`
	Location  string `json:"location"`
	Body      string `json:"body"`
}
