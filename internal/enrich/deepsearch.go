package enrich

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/model"
)

// ownershipKeywords anchor the excerpt extraction: a page section only
// qualifies when it mentions the corporate structure.
var ownershipKeywords = []string{
	"Sócio",
	"Acionistas",
	"QSA",
	"Sócio-Gerente",
	"Quadro Societário",
}

// excerptWindow is how many characters of context to keep around each
// keyword anchor.
const excerptWindow = 600

// Fetcher performs the best-effort corporate-structure lookup keyed by
// tax id. All failure paths collapse to absence; callers never see errors.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// FetcherOption configures the Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherBaseURL overrides the lookup site base URL. Empty keeps the
// default.
func WithFetcherBaseURL(u string) FetcherOption {
	return func(f *Fetcher) {
		if u != "" {
			f.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithFetcherTimeout overrides the request timeout. Zero or negative
// keeps the default.
func WithFetcherTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// NewFetcher creates a Fetcher with a short timeout: the lookup is an
// optional enrichment, not a required step.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		baseURL: "https://cnpj.biz",
		client: &http.Client{
			Timeout: 2 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 2 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 2 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the ownership-structure excerpt for a tax id. The second
// return value reports presence. Invalid ids, unreachable pages, timeouts,
// and keyword misses all return ("", false).
func (f *Fetcher) Fetch(ctx context.Context, cnpj string) (string, bool) {
	clean := model.CleanCNPJ(cnpj)
	if !model.ValidCNPJ(clean) {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+clean, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("deepsearch: fetch failed", zap.String("cnpj", clean), zap.Error(err))
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", false
	}

	text := stripHTML(string(body))
	excerpt := extractAroundKeywords(text, ownershipKeywords, excerptWindow)
	if excerpt == "" {
		return "", false
	}
	if len(excerpt) > model.MaxExcerptLen {
		excerpt = excerpt[:snapRune(excerpt, model.MaxExcerptLen)]
	}
	return excerpt, true
}

// extractAroundKeywords collects windows of text around each keyword
// occurrence, merging overlapping windows and joining segments in document
// order. Returns "" when no keyword is found.
func extractAroundKeywords(text string, keywords []string, window int) string {
	type span struct{ start, end int }
	var spans []span

	for _, kw := range keywords {
		idx := 0
		for {
			pos := strings.Index(text[idx:], kw)
			if pos < 0 {
				break
			}
			pos += idx
			start := pos - window
			if start < 0 {
				start = 0
			}
			end := pos + len(kw) + window
			if end > len(text) {
				end = len(text)
			}
			spans = append(spans, span{start, end})
			idx = pos + len(kw)
		}
	}

	if len(spans) == 0 {
		return ""
	}

	// Sort spans by start, then merge overlaps.
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}

	parts := make([]string, 0, len(merged))
	for _, s := range merged {
		// Snap to rune boundaries so multi-byte keyword text survives.
		start, end := snapRune(text, s.start), snapRune(text, s.end)
		parts = append(parts, strings.TrimSpace(text[start:end]))
	}
	return strings.Join(parts, "\n\n")
}

// snapRune moves pos backward to the nearest UTF-8 rune start.
func snapRune(text string, pos int) int {
	for pos > 0 && pos < len(text) && text[pos]&0xC0 == 0x80 {
		pos--
	}
	return pos
}

// stripHTML removes scripts/styles/nav/footer, strips tags, decodes common
// entities, and collapses whitespace into plaintext.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}

// excerptLogLine summarizes a fetch outcome for the entity log trail.
func excerptLogLine(cnpj string, found bool, length int) string {
	if !found {
		return fmt.Sprintf("deepsearch: no ownership excerpt for %s", cnpj)
	}
	return fmt.Sprintf("deepsearch: extracted %d chars of ownership context for %s", length, cnpj)
}
