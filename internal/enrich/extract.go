package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/config"
	"github.com/valorintel/discovery-cli/internal/model"
	"github.com/valorintel/discovery-cli/pkg/anthropic"
)

// systemDirective is the fixed extraction instruction. It pins the exact
// output schema so responses parse into model.ExtractionResult.
const systemDirective = `You are a corporate intelligence analyst extracting identifiers from search evidence about a Brazilian company.

Return a single JSON object with exactly these keys:
{
  "official_website": "<URL of the company's official site, or null>",
  "linkedin_url": "<URL of the company's LinkedIn page, or null>",
  "primary_cnpj": "<the company's 14-digit CNPJ, digits only, or null>",
  "radical_cnpj": "<first 8 digits of primary_cnpj, or null>",
  "corporate_group_notes": "<short note on controlling shareholders or parent group, or null>",
  "found_brands": ["<subsidiary or brand names>"]
}

Rules:
- Use null for any string field you cannot determine from the evidence.
- found_brands defaults to an empty list, never null.
- Populate corporate_group_notes ONLY when a "Corporate Structure" section is present in the evidence; otherwise it must be null.
- Do not invent identifiers that are not supported by the evidence.`

// deepSearchHeader labels the optional ownership-evidence section of the
// document; the directive keys corporate_group_notes off its presence.
const deepSearchHeader = "--- Corporate Structure (deep search) ---"

// BuildDocument renders the evidence bundle into the extraction prompt
// document: identity fields, both ranked evidence lists, and the optional
// deep-search section.
func BuildDocument(e model.EntityInput, bundle model.EvidenceBundle) string {
	var b strings.Builder

	b.WriteString("Company: " + e.Name + "\n")
	if e.LegalName != "" {
		b.WriteString("Legal name: " + e.LegalName + "\n")
	}
	if e.City != "" {
		b.WriteString("Headquarters: " + e.City + "\n")
	}
	if e.Sector != "" {
		b.WriteString("Sector: " + e.Sector + "\n")
	}

	writeItems := func(header string, items []model.EvidenceItem) {
		b.WriteString("\n" + header + "\n")
		if len(items) == 0 {
			b.WriteString("(no results)\n")
			return
		}
		for i, item := range items {
			fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, item.Title, item.Link, item.Snippet)
		}
	}

	writeItems("--- Official identity search results ---", bundle.Official)
	writeItems("--- Tax id (CNPJ) search results ---", bundle.TaxID)

	if bundle.DeepSearchExcerpt != "" {
		b.WriteString("\n" + deepSearchHeader + "\n")
		b.WriteString(bundle.DeepSearchExcerpt + "\n")
	}

	return b.String()
}

// Invoker assembles evidence documents and calls the extraction service.
type Invoker struct {
	ai           anthropic.Client
	cfg          config.AnthropicConfig
	systemBlocks []anthropic.SystemBlock
}

// NewInvoker creates an Invoker. The system directive is sent with a cache
// breakpoint since it is identical for every entity in a run.
func NewInvoker(ai anthropic.Client, cfg config.AnthropicConfig) *Invoker {
	return &Invoker{
		ai:           ai,
		cfg:          cfg,
		systemBlocks: anthropic.BuildCachedSystemBlocks(systemDirective),
	}
}

// Invoke sends exactly one extraction request for the document and parses
// the response. Parse-level problems salvage what they can; only a failed
// invocation returns an error, and even then the result is usable
// (all-empty). hadExcerpt gates corporate_group_notes.
func (inv *Invoker) Invoke(ctx context.Context, doc string, hadExcerpt bool) (model.ExtractionResult, anthropic.TokenUsage, error) {
	maxTokens := int64(inv.cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	resp, err := inv.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     inv.cfg.Model,
		MaxTokens: maxTokens,
		System:    inv.systemBlocks,
		Messages: []anthropic.Message{
			{Role: "user", Content: doc},
		},
	})
	if err != nil {
		return model.EmptyExtraction(), anthropic.TokenUsage{}, eris.Wrap(err, "extract: invoke")
	}

	result := ParseExtraction(resp.Text(), hadExcerpt)
	return result, resp.Usage, nil
}

// ParseExtraction parses an extraction-service response into a typed
// result. The response may be wrapped in prose or code fences; the first
// well-formed JSON object wins. Missing or mistyped fields resolve to
// their empty defaults rather than failing the record.
func ParseExtraction(text string, hadExcerpt bool) model.ExtractionResult {
	result := model.EmptyExtraction()

	cleaned := cleanJSON(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		zap.L().Warn("extract: failed to parse response JSON", zap.Error(err))
		return result
	}

	result.OfficialWebsite = coerceString(raw["official_website"])
	result.LinkedInURL = coerceString(raw["linkedin_url"])
	result.CorporateGroupNotes = coerceString(raw["corporate_group_notes"])
	result.FoundBrands = coerceBrands(raw["found_brands"])

	if cnpj := model.CleanCNPJ(coerceString(raw["primary_cnpj"])); model.ValidCNPJ(cnpj) {
		result.PrimaryCNPJ = cnpj
		result.RadicalCNPJ = model.RadicalOf(cnpj)
	}

	// Group notes only make sense when deep-search evidence was supplied.
	if !hadExcerpt {
		result.CorporateGroupNotes = ""
	}

	return result
}

// cleanJSON strips code fences and surrounding prose, isolating the first
// JSON object in the text.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// coerceString converts a JSON value to a trimmed string; null and
// non-string values become "".
func coerceString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// coerceBrands normalizes the found_brands value: string and numeric
// entries are kept as trimmed strings, everything else is dropped. Always
// returns a non-nil slice.
func coerceBrands(v any) []string {
	brands := []string{}
	list, ok := v.([]any)
	if !ok {
		return brands
	}
	for _, entry := range list {
		var s string
		switch x := entry.(type) {
		case string:
			s = strings.TrimSpace(x)
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			continue
		}
		if s == "" {
			continue
		}
		brands = append(brands, s)
	}
	return brands
}
