package models

import "time"

// LocationPoint is one recorded position fix. Only Synced changes after insert.
type LocationPoint struct {
	ID        string    `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
	ConsentID string    `json:"consentId"`
	Synced    bool      `json:"synced"`
}

// BrowsingPoint is one persisted page visit. TimeSpent is in whole seconds.
type BrowsingPoint struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	TimeSpent int       `json:"timeSpent"`
	Timestamp time.Time `json:"timestamp"`
	ConsentID string    `json:"consentId"`
	Synced    bool      `json:"synced"`
}

// BrowsingSession is the in-memory accumulator for the page being viewed.
type BrowsingSession struct {
	Domain    string
	URL       string
	Title     string
	StartedAt time.Time
}

// LocationStats summarises location points inside a trailing window.
// LastTimestamp is zero when Count is zero.
type LocationStats struct {
	Count         int
	LastTimestamp time.Time
}

// BrowsingStats summarises browsing points inside a trailing window.
type BrowsingStats struct {
	Count   int
	Domains int
}
