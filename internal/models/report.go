package models

import (
	"errors"
	"fmt"
	"strings"
)

// Report types accepted by the service.
const (
	ReportTypeLost  = "lost"
	ReportTypeFound = "found"
)

// ErrInvalidReportType is returned when a report's type is neither "lost" nor "found".
var ErrInvalidReportType = errors.New(`invalid report_type (use "lost" or "found")`)

// Report is a submitted lost/found report. It is transient: a valid report
// produces an item id, an index entry, and (for lost reports) matches.
type Report struct {
	ImageSource string `json:"image_source"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Category    string `json:"category,omitempty"`
	ReportType  string `json:"report_type"`
}

// Validate checks required fields and normalizes the report.
// Category defaults to "general" when empty.
func (r *Report) Validate() error {
	r.ReportType = strings.ToLower(strings.TrimSpace(r.ReportType))
	if r.ReportType != ReportTypeLost && r.ReportType != ReportTypeFound {
		return fmt.Errorf("%w: got %q", ErrInvalidReportType, r.ReportType)
	}
	if strings.TrimSpace(r.ImageSource) == "" {
		return fmt.Errorf("image_source is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("location is required")
	}
	if r.Category == "" {
		r.Category = "general"
	}
	return nil
}
