package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

type selectorKind int

const (
	kindCSS selectorKind = iota
	kindXPath
)

// Locator addresses zero or more DOM nodes. Actions act on the first match
// in document order.
type Locator struct {
	Name     string
	selector string
	kind     selectorKind
}

// CSS matches any of the given CSS selectors.
func CSS(name string, selectors ...string) Locator {
	return Locator{
		Name:     name,
		selector: strings.Join(selectors, ", "),
		kind:     kindCSS,
	}
}

// ButtonText matches <button> elements whose normalized text contains any of
// the labels, ignoring ASCII case.
func ButtonText(name string, labels ...string) Locator {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf(
			"//button[contains(translate(normalize-space(.), %s, %s), %s)]",
			xpathLiteral(upperASCII), xpathLiteral(lowerASCII), xpathLiteral(strings.ToLower(l)),
		))
	}
	return Locator{
		Name:     name,
		selector: strings.Join(parts, " | "),
		kind:     kindXPath,
	}
}

const (
	upperASCII = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerASCII = "abcdefghijklmnopqrstuvwxyz"
)

func (l Locator) String() string {
	return l.selector
}

// actionSelector narrows the locator to its first match. BySearch otherwise
// resolves every node of the union and chromedp waits for all of them.
func (l Locator) actionSelector() string {
	if l.kind == kindXPath {
		return "(" + l.selector + ")[1]"
	}
	return l.selector
}

func (l Locator) queryOption() chromedp.QueryOption {
	if l.kind == kindXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// countJS evaluates to the number of matching nodes.
func (l Locator) countJS() string {
	if l.kind == kindXPath {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength",
			jsString(l.selector),
		)
	}
	return fmt.Sprintf("document.querySelectorAll(%s).length", jsString(l.selector))
}

// firstJS evaluates to the first matching node or null.
func (l Locator) firstJS() string {
	if l.kind == kindXPath {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			jsString(l.selector),
		)
	}
	return fmt.Sprintf("document.querySelector(%s)", jsString(l.selector))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
