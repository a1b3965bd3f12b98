// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// Package slug generates ASCII URL slugs from arbitrary Unicode strings.
// Slugs serve as human-readable product and category identifiers, e.g.
// "Café Grinder Pro" becomes "cafe-grinder-pro".
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// From converts s into a URL-safe ASCII slug: accents are stripped via NFD
// decomposition, letters lowercased, and every run of other characters
// collapses into a single hyphen. Leading and trailing hyphens are trimmed.
func From(s string) string {
	decomposed, _, _ := transform.String(transform.Chain(norm.NFD, transform.RemoveFunc(isMark)), s)
	lowered := strings.ToLower(decomposed)

	var builder strings.Builder
	builder.Grow(len(lowered))
	pendingHyphen := false

	for _, r := range lowered {
		isSafe := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isSafe {
			pendingHyphen = builder.Len() > 0
			continue
		}
		if pendingHyphen {
			builder.WriteByte('-')
			pendingHyphen = false
		}
		builder.WriteRune(r)
	}

	return builder.String()
}

// isMark reports whether r is a combining mark left over from NFD
// decomposition, such as the acute accent split off an é.
func isMark(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
