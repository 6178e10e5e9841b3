// Package formmap analyzes a representative's contact page and maps its
// form fields to parsed user data, producing selector-based fill plans for
// the browser extension.
package formmap

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/internal/apperr"
	"github.com/outrage-civic/outrage-api/pkg/anthropic"
)

// maxPageBytes caps how much of a target page is read.
const maxPageBytes = 512 * 1024

// Cache is the subset of the store the mapper needs.
type Cache interface {
	GetCachedFormAnalysis(ctx context.Context, requestHash string) ([]byte, error)
	SetCachedFormAnalysis(ctx context.Context, requestHash string, data []byte, ttl time.Duration) error
}

// Mapper runs the two-stage form analysis.
type Mapper struct {
	ai        anthropic.Client
	modelName string
	cache     Cache
	ttl       time.Duration
	http      *http.Client
}

// Option configures the mapper.
type Option func(*Mapper)

// WithHTTPClient overrides the page-fetching http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Mapper) {
		m.http = hc
	}
}

// NewMapper creates a Mapper using the given (sonnet-class) model.
// A nil cache disables caching.
func NewMapper(ai anthropic.Client, modelName string, cache Cache, ttl time.Duration, opts ...Option) *Mapper {
	m := &Mapper{
		ai:        ai,
		modelName: modelName,
		cache:     cache,
		ttl:       ttl,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// RequestHash keys an analysis by normalized URL plus the sorted user data,
// so identical requests hit the cache regardless of map iteration order or
// when they were made.
func RequestHash(pageURL string, userData map[string]string) string {
	keys := make([]string, 0, len(userData))
	for k := range userData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(normalizeURL(pageURL))
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, userData[k])
	}

	h := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", h)
}

func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// Analyze maps the form on pageURL to the user's data. The second return
// reports whether the analysis came from cache.
func (m *Mapper) Analyze(ctx context.Context, pageURL string, userData map[string]string) (*Analysis, bool, error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, false, apperr.New(apperr.KindValidation, "formmap: url is required")
	}
	if len(userData) == 0 {
		return nil, false, apperr.New(apperr.KindValidation, "formmap: userData is required")
	}

	hash := RequestHash(pageURL, userData)

	if m.cache != nil {
		if data, err := m.cache.GetCachedFormAnalysis(ctx, hash); err != nil {
			zap.L().Warn("form analysis cache read failed", zap.Error(err))
		} else if data != nil {
			var cached Analysis
			if err := json.Unmarshal(data, &cached); err == nil {
				zap.L().Debug("form analysis cache hit", zap.String("key", hash[:12]))
				return &cached, true, nil
			}
		}
	}

	pageHTML, err := m.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, false, err
	}

	formHTML, err := ExtractFormHTML(pageHTML)
	if err != nil {
		return nil, false, err
	}

	analysis, err := m.mapFields(ctx, formHTML, userData)
	if err != nil {
		return nil, false, err
	}

	if m.cache != nil {
		if data, err := json.Marshal(analysis); err == nil {
			if err := m.cache.SetCachedFormAnalysis(ctx, hash, data, m.ttl); err != nil {
				zap.L().Warn("form analysis cache write failed", zap.Error(err))
			}
		}
	}

	return analysis, false, nil
}

func (m *Mapper) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, err, "formmap: create page request")
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, err, "formmap: fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.Wrap(apperr.KindUpstream,
			fmt.Errorf("status %d", resp.StatusCode), "formmap: fetch page")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, err, "formmap: read page")
	}
	return string(body), nil
}

func (m *Mapper) mapFields(ctx context.Context, formHTML string, userData map[string]string) (*Analysis, error) {
	resp, err := m.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     m.modelName,
		MaxTokens: 2048,
		Messages: []anthropic.Message{
			{Role: "user", Content: mappingPrompt(formHTML, userData)},
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, err, "formmap: model call")
	}
	resp.Usage.LogUsage(m.modelName, "form_mapping")

	analysis, err := parseMappingResponse(resp.Text())
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func mappingPrompt(formHTML string, userData map[string]string) string {
	keys := make([]string, 0, len(userData))
	for k := range userData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`Map this contact form's fields to the user's data.

Rules:
1. Parse the user's full name into firstName, lastName, prefix, suffix.
2. Parse the user's single-line address into street, unit, city, state, zip.
3. Use ONLY CSS selectors that literally appear in the HTML below; never invent ids or classes.
4. For fields with multiple plausible targets, give a comma-separated fallback selector list.

Respond with JSON only:
{
  "parsedData": {"firstName": "...", "lastName": "...", "street": "...", "city": "...", "state": "...", "zip": "..."},
  "fieldMappings": {"<dataPath>": {"selector": "<css>", "type": "text|email|tel|textarea|select|radio|checkbox"}},
  "formSelector": "<css>",
  "submitSelector": "<css>"
}

User data:
`)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, userData[k])
	}
	b.WriteString("\nForm HTML:\n" + formHTML)
	return b.String()
}

// parseMappingResponse validates the model output; missing fieldMappings
// or formSelector is a rejection, never a guess.
func parseMappingResponse(text string) (*Analysis, error) {
	jsonText := extractJSONObject(text)
	if jsonText == "" {
		return nil, apperr.New(apperr.KindParse, "formmap: no JSON object in model response")
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(jsonText), &analysis); err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, "formmap: unmarshal model response")
	}

	if len(analysis.FieldMappings) == 0 {
		return nil, apperr.New(apperr.KindParse, "formmap: model response missing fieldMappings")
	}
	if strings.TrimSpace(analysis.FormSelector) == "" {
		return nil, apperr.New(apperr.KindParse, "formmap: model response missing formSelector")
	}

	return &analysis, nil
}

// extractJSONObject strips code fences and surrounding prose, returning the
// outermost {...} block.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
