package inspect

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Digest summarises a rendered page for the console and the log.
type Digest struct {
	Title      string
	Excerpt    string
	TextLength int
}

// PageDigest extracts the readable content of a serialized document.
func PageDigest(doc, pageURL string) (Digest, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to parse URL: %v", err)
	}

	article, err := readability.FromReader(strings.NewReader(doc), parsedURL)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to parse page: %v", err)
	}

	text := collapse(article.TextContent)
	return Digest{
		Title:      strings.TrimSpace(article.Title),
		Excerpt:    Truncate(collapse(article.Excerpt), 120),
		TextLength: len([]rune(text)),
	}, nil
}

// TextPreview strips all markup from an HTML fragment and truncates the
// remaining text to max runes.
func TextPreview(fragment string, max int) string {
	// Block-level boundaries would otherwise glue words together.
	fragment = strings.NewReplacer("<br>", " ", "<br/>", " ", "</div>", " </div>", "</p>", " </p>").Replace(fragment)
	text := bluemonday.StrictPolicy().Sanitize(fragment)
	return Truncate(collapse(html.UnescapeString(text)), max)
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
