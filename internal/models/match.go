package models

// Match is a single ranked cross-match for a lost report.
// Score is rounded to 3 decimals for display; Confidence is High/Medium/Low.
type Match struct {
	ItemID     string  `json:"item_id"`
	Score      float64 `json:"score"`
	Confidence string  `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ReportResponse is the response for a report submission.
// Matches is only populated for lost reports.
type ReportResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	ItemID  string   `json:"item_id,omitempty"`
	Matches []*Match `json:"matches,omitempty"`
	Error   string   `json:"error,omitempty"`
}
