package formmap

import (
	"regexp"
	"sort"
	"strings"

	"github.com/outrage-civic/outrage-api/internal/apperr"
)

// maxExtractBytes caps the markup sent to the model.
const maxExtractBytes = 20000

// windowRadius is how much surrounding context a form control keeps when a
// page has no <form> element to anchor on.
const windowRadius = 1500

var (
	formPattern    = regexp.MustCompile(`(?is)<form\b.*?</form>`)
	controlPattern = regexp.MustCompile(`(?i)<(?:input|textarea|select)\b`)
)

// contactKeywords mark blocks that look like a contact or message form.
var contactKeywords = []string{"contact", "message", "email", "name"}

// ExtractFormHTML pulls the candidate form markup out of a raw page.
// It prefers whole <form> blocks; when a page builds its form without one,
// it falls back to context windows around input/textarea/select elements.
// Blocks mentioning contact/message/email/name are prioritized. Returns an
// error only when the page has no form controls at all.
func ExtractFormHTML(html string) (string, error) {
	blocks := formPattern.FindAllString(html, -1)
	if len(blocks) == 0 {
		blocks = controlWindows(html)
	}
	if len(blocks) == 0 {
		return "", apperr.New(apperr.KindValidation, "formmap: no form controls found on page")
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return scoreBlock(blocks[i]) > scoreBlock(blocks[j])
	})

	var b strings.Builder
	for _, block := range blocks {
		if b.Len()+len(block) > maxExtractBytes {
			break
		}
		b.WriteString(block)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		// A single oversized block still has to be sent; truncate it.
		return blocks[0][:maxExtractBytes], nil
	}
	return b.String(), nil
}

// controlWindows returns merged context windows around form controls.
func controlWindows(html string) []string {
	matches := controlPattern.FindAllStringIndex(html, -1)
	if len(matches) == 0 {
		return nil
	}

	type span struct{ start, end int }
	var spans []span
	for _, m := range matches {
		start := m[0] - windowRadius
		if start < 0 {
			start = 0
		}
		end := m[1] + windowRadius
		if end > len(html) {
			end = len(html)
		}
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			spans[n-1].end = end
			continue
		}
		spans = append(spans, span{start, end})
	}

	windows := make([]string, len(spans))
	for i, s := range spans {
		windows[i] = html[s.start:s.end]
	}
	return windows
}

// scoreBlock ranks candidate blocks: contact-ish keywords dominate, then
// control density breaks ties.
func scoreBlock(block string) int {
	lower := strings.ToLower(block)
	score := 0
	for _, kw := range contactKeywords {
		if strings.Contains(lower, kw) {
			score += 10
		}
	}
	score += len(controlPattern.FindAllStringIndex(block, -1))
	return score
}
