// Package cli provides CLI utilities for Otoshimono.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/otoshimono/otoshimono/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteReportResponse writes a report response to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteReportResponse(w io.Writer, resp *models.ReportResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	default:
		writeReportResponseText(w, resp)
		return nil
	}
}

func writeReportResponseText(w io.Writer, resp *models.ReportResponse) {
	fmt.Fprintf(w, "%s\n", resp.Message)
	fmt.Fprintf(w, "Item ID: %s\n", resp.ItemID)
	if resp.Matches == nil {
		return
	}
	if len(resp.Matches) == 0 {
		fmt.Fprintln(w, "\nNo potential matches found yet.")
		return
	}
	fmt.Fprintf(w, "\nFound %d potential match(es):\n\n", len(resp.Matches))
	for i, m := range resp.Matches {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s\n", i+1, m.ItemID)
		fmt.Fprintf(w, "   Score: %.3f | Confidence: %s\n", m.Score, m.Confidence)
		fmt.Fprintf(w, "   %s\n", m.Reason)
	}
}

// WriteItems writes an item listing to w in the given format.
func WriteItems(w io.Writer, items []*models.Item, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	default:
		writeItemsText(w, items)
		return nil
	}
}

func writeItemsText(w io.Writer, items []*models.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%s [%s/%s]\n", item.ID, item.ReportType, item.Category)
		fmt.Fprintf(w, "Location: %s\n", item.Location)
		if item.Description != "" {
			fmt.Fprintf(w, "%s\n", Truncate(item.Description, 200))
		}
		if len(item.Labels) > 0 {
			fmt.Fprintf(w, "Labels: %s\n", strings.Join(item.Labels, ", "))
		}
		fmt.Fprintln(w)
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
