package store

import "time"

type Profile struct {
	ID               string
	Name             string
	Email            string
	LogbookName      string
	Organization     string
	IsPro            bool
	StripeCustomerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Logbook struct {
	ID              string
	UserID          string
	Name            string
	Organization    string
	DefaultLocation string
	Fields          []LogbookField
	CreatedAt       time.Time
}

// LogbookField is one user-defined input of a logbook, kept in Position order.
type LogbookField struct {
	ID       string
	Key      string
	Label    string
	Type     string
	Options  []string
	Position int
}

type Entry struct {
	ID         string
	UserID     string
	LogbookID  string
	Date       string
	Hours      float64
	StartTime  string
	EndTime    string
	Energy     string
	Location   string
	WorkedOn   string
	Learned    string
	Blockers   string
	Ideas      string
	Tomorrow   string
	CustomData map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SyncTarget is the S3-compatible bucket a user exports PDFs into. The secret
// key is stored sealed and never leaves the store in plaintext.
type SyncTarget struct {
	UserID       string
	Provider     string
	Endpoint     string
	Bucket       string
	AccessKey    string
	SealedSecret []byte
	UseSSL       bool
	// Region is empty when the endpoint does not need one.
	Region      string
	ConnectedAt time.Time
}
