package core

import (
	"regexp"
	"strings"
)

// The model embeds follow-up image requests as <<IMAGE_GEN: description>>
// anywhere in its reply.
var imageDirectiveRe = regexp.MustCompile(`<<IMAGE_GEN:\s*(.*?)>>`)

// ExtractImageDirective strips the first image directive from text and
// returns the cleaned display text plus the trimmed description. ok is false
// when no directive is present or its payload is empty; the tag is removed
// from the display text either way.
func ExtractImageDirective(text string) (clean string, description string, ok bool) {
	m := imageDirectiveRe.FindStringSubmatchIndex(text)
	if m == nil {
		return text, "", false
	}
	description = strings.TrimSpace(text[m[2]:m[3]])
	clean = strings.TrimSpace(text[:m[0]] + text[m[1]:])
	return clean, description, description != ""
}
