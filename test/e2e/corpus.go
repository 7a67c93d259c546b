// Package e2e holds end-to-end tests that exercise the full report/match
// lifecycle through the HTTP API.
package e2e

import "github.com/otoshimono/otoshimono/internal/models"

// FoundFixture is one found-item report seeded before the lost reports run.
type FoundFixture struct {
	Key    string // stable handle used by test cases
	Report models.Report
}

// LostCase is a lost report with the found fixture it should match.
// With the deterministic mock embedder, a lost report matches a found fixture
// when both use the same image source and a description short enough to keep
// fusion on the image vector.
type LostCase struct {
	Description string // subtest name
	Report      models.Report
	ExpectedKey string // key of the FoundFixture expected among matches; "" = no match expected
}

// Corpus is the fixture set for the end-to-end run.
type Corpus struct {
	Found []FoundFixture
	Lost  []LostCase
}

// BuildCorpus returns the e2e fixture set.
func BuildCorpus() *Corpus {
	return &Corpus{
		Found: []FoundFixture{
			{
				Key: "keys",
				Report: models.Report{
					ReportType:  "found",
					Category:    "keys",
					Description: "keys",
					Location:    "central station lost and found desk",
					ImageSource: "fixtures/silver-keychain.jpg",
				},
			},
			{
				Key: "wallet",
				Report: models.Report{
					ReportType:  "found",
					Category:    "wallet",
					Description: "card",
					Location:    "platform 3 bench",
					ImageSource: "fixtures/black-leather-wallet.jpg",
				},
			},
			{
				Key: "umbrella",
				Report: models.Report{
					ReportType:  "found",
					Category:    "umbrella",
					Description: "red",
					Location:    "north exit turnstile",
					ImageSource: "fixtures/red-umbrella.jpg",
				},
			},
		},
		Lost: []LostCase{
			{
				Description: "lost keys match the found keychain",
				Report: models.Report{
					ReportType:  "lost",
					Category:    "keys",
					Description: "keys",
					Location:    "somewhere near central station",
					ImageSource: "fixtures/silver-keychain.jpg",
				},
				ExpectedKey: "keys",
			},
			{
				Description: "lost wallet matches the found wallet",
				Report: models.Report{
					ReportType:  "lost",
					Category:    "wallet",
					Description: "card",
					Location:    "train to the airport",
					ImageSource: "fixtures/black-leather-wallet.jpg",
				},
				ExpectedKey: "wallet",
			},
			{
				Description: "unrelated item matches nothing",
				Report: models.Report{
					ReportType:  "lost",
					Category:    "laptop",
					Description: "gray",
					Location:    "waiting room",
					ImageSource: "fixtures/gray-laptop.jpg",
				},
				ExpectedKey: "",
			},
		},
	}
}
