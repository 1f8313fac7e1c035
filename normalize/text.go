package normalize

import (
	"html"
	"strings"
	"unicode"
)

// cleanText strips markup from a feed text field: tags dropped, entities
// decoded, whitespace collapsed. WordPress wraps everything in <p> and
// escapes ampersands even inside titles.
func cleanText(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			// Tag boundaries separate words: "<p>a</p><p>b</p>"
			// must not fuse into "ab".
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	return collapseSpace(html.UnescapeString(b.String()))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// slugOr lowercases an existing slug, or derives one from the display name
// when the feed didn't send a slug.
func slugOr(slug, name string) string {
	if slug != "" {
		return strings.ToLower(slug)
	}
	return slugify(name)
}

// slugify reduces a display name to a lowercase dashed slug the way
// WordPress would, so synthetic terms sort next to real ones.
func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
