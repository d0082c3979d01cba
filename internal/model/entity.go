package model

import (
	"regexp"
	"strconv"
	"strings"
)

// EntityInput is a corporate record as supplied by the caller (typically a
// ranking row). It is never mutated by the pipeline.
type EntityInput struct {
	Rank      int    `json:"rank,omitempty"`
	Name      string `json:"name"`
	City      string `json:"city"`
	Sector    string `json:"sector"`
	Revenue   string `json:"revenue"` // net revenue in millions, raw ranking format
	Profit    string `json:"profit,omitempty"`
	LegalName string `json:"legal_name,omitempty"`
	KnownCNPJ string `json:"known_cnpj,omitempty"`
}

// EvidenceItem is a single normalized search result.
type EvidenceItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// EvidenceBundle holds the ranked evidence gathered for one entity: one
// sequence per query category plus the optional deep-search excerpt.
// An empty DeepSearchExcerpt means the deep-search stage was skipped or
// produced nothing; when present it is at most MaxExcerptLen characters.
type EvidenceBundle struct {
	Official          []EvidenceItem `json:"official"`
	TaxID             []EvidenceItem `json:"tax_id"`
	DeepSearchExcerpt string         `json:"deep_search_excerpt,omitempty"`
}

// MaxExcerptLen caps the deep-search excerpt length.
const MaxExcerptLen = 3000

// ExtractionResult holds the typed fields parsed from the extraction
// service response. Empty strings stand in for unknown values; FoundBrands
// is always non-nil.
type ExtractionResult struct {
	OfficialWebsite     string   `json:"official_website"`
	LinkedInURL         string   `json:"linkedin_url"`
	PrimaryCNPJ         string   `json:"primary_cnpj"`
	RadicalCNPJ         string   `json:"radical_cnpj"`
	CorporateGroupNotes string   `json:"corporate_group_notes"`
	FoundBrands         []string `json:"found_brands"`
}

// EmptyExtraction returns an all-unknown result with a non-nil brand list.
func EmptyExtraction() ExtractionResult {
	return ExtractionResult{FoundBrands: []string{}}
}

// EnrichedEntity is the per-entity pipeline output: the untouched input,
// the extraction fields, and an ordered human-readable log trail.
type EnrichedEntity struct {
	EntityInput
	ExtractionResult
	Log []string `json:"log"`
}

var nonDigitRe = regexp.MustCompile(`\D`)

// CleanCNPJ strips all non-digit characters from a CNPJ string.
func CleanCNPJ(s string) string {
	if s == "" {
		return ""
	}
	return nonDigitRe.ReplaceAllString(s, "")
}

// ValidCNPJ reports whether s is a bare 14-digit CNPJ.
func ValidCNPJ(s string) bool {
	if len(s) != 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RadicalOf returns the 8-digit radical (parent legal entity prefix) of a
// valid CNPJ, or "" when the input is not a 14-digit id.
func RadicalOf(cnpj string) string {
	if !ValidCNPJ(cnpj) {
		return ""
	}
	return cnpj[:8]
}

var (
	cnpjFormattedRe = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)
	cnpjDigitsRe    = regexp.MustCompile(`\b\d{14}\b`)
)

// FindCNPJ returns the first plausible CNPJ found in free text, normalized
// to 14 digits, or "" when none is present.
func FindCNPJ(text string) string {
	if m := cnpjDigitsRe.FindString(text); m != "" {
		return m
	}
	if m := cnpjFormattedRe.FindString(text); m != "" {
		if c := CleanCNPJ(m); ValidCNPJ(c) {
			return c
		}
	}
	return ""
}

// ParseRevenue converts a ranking revenue string to a float64. It accepts
// Brazilian decimal formats ("9.123,4") as well as plain numbers. Absent or
// unparseable values parse as 0.
func ParseRevenue(s string) float64 {
	text := strings.TrimSpace(s)
	if text == "" {
		return 0
	}
	switch {
	case strings.Contains(text, ",") && strings.Contains(text, "."):
		text = strings.ReplaceAll(text, ".", "")
		text = strings.ReplaceAll(text, ",", ".")
	case strings.Contains(text, ","):
		text = strings.ReplaceAll(text, ",", ".")
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return v
}
