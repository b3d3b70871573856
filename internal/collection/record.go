// Package collection persists the user's saved identifications as a single
// newest-first list in key-value storage and derives statistics from it.
package collection

import (
	"github.com/JaimeStill/specimen/internal/identification"
)

// Key is the storage key holding the serialized collection.
const Key = "specimen_collection"

// Record is a saved identification. Records are never mutated in place.
type Record struct {
	identification.Identification
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	ImageURI  string `json:"imageUri"`
}

// SaveRequest is the body of POST /collection: an identification plus the
// URI of the photographed image.
type SaveRequest struct {
	identification.Identification
	ImageURI string `json:"imageUri"`
}

// Statistics summarizes the collection.
type Statistics struct {
	Total             int            `json:"total"`
	ByCategory        map[string]int `json:"byCategory"`
	AverageConfidence float64        `json:"averageConfidence"`
}

// Match is a record whose fingerprint lies within a Hamming distance of a query.
type Match struct {
	Record
	Distance int `json:"distance"`
}
