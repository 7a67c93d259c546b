// Package models defines core data structures for items, reports, and matches.
package models

import "time"

// Item represents a reported lost or found item with its stored metadata.
type Item struct {
	ID           string    `json:"item_id" db:"item_id"`
	ReportType   string    `json:"report_type" db:"report_type"`
	Category     string    `json:"category" db:"category"`
	Description  string    `json:"description" db:"description"`
	Location     string    `json:"location" db:"location"`
	ImageSource  string    `json:"image_source,omitempty" db:"image_source"`
	Labels       []string  `json:"labels,omitempty" db:"labels"`
	Colors       []string  `json:"colors,omitempty" db:"colors"`
	DetectedText string    `json:"detected_text,omitempty" db:"detected_text"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
