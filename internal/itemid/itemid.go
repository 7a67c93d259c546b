// Package itemid mints and parses human-readable item identifiers.
// An id has the form TYPE-CATEGORY-SUFFIX, e.g. "LOST-WALLET-A9F2C3D1".
// The type prefix is load-bearing: the opposite-type match filter reads it.
package itemid

import (
	"strings"

	"github.com/google/uuid"

	"github.com/otoshimono/otoshimono/internal/models"
)

// suffixLen is the number of random hex characters appended to an id.
// The suffix is for human readability, not collision resistance.
const suffixLen = 8

// New returns a fresh item id for the given report type and category.
// Same inputs yield distinct ids (random suffix).
func New(reportType, category string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:suffixLen]
	return strings.ToUpper(reportType) + "-" + normalizeCategory(category) + "-" + suffix
}

// normalizeCategory uppercases the category and collapses whitespace to
// underscores so the id stays a single token.
func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		category = "GENERAL"
	}
	return strings.ToUpper(strings.Join(strings.Fields(category), "_"))
}

// ReportTypeOf returns the report type encoded in id ("lost" or "found"),
// or "" when the prefix is not recognized.
func ReportTypeOf(id string) string {
	prefix, _, ok := strings.Cut(id, "-")
	if !ok {
		return ""
	}
	switch prefix {
	case "LOST":
		return models.ReportTypeLost
	case "FOUND":
		return models.ReportTypeFound
	default:
		return ""
	}
}

// Opposite returns the opposite report type, or "" for unknown input.
func Opposite(reportType string) string {
	switch reportType {
	case models.ReportTypeLost:
		return models.ReportTypeFound
	case models.ReportTypeFound:
		return models.ReportTypeLost
	default:
		return ""
	}
}
