package drafts

import (
	"regexp"
	"strings"
)

// draftPattern matches the declared model output shape:
//
//	Subject: <line>
//	Message:
//	<body>
var draftPattern = regexp.MustCompile(`(?s)Subject:[ \t]*([^\n]*)\n+Message:[ \t]*\n(.*)`)

// ParseDraft extracts the subject and body from a model response. Missing
// either marker, or an empty subject or body after trimming, is a parse
// failure; a partial draft is never returned.
func ParseDraft(text string) (subject, content string, ok bool) {
	m := draftPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}

	subject = strings.TrimSpace(m[1])
	content = strings.TrimSpace(m[2])
	if subject == "" || content == "" {
		return "", "", false
	}

	return subject, content, true
}
