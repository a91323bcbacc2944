package extracthtml

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// findContainer returns the first element matching the container landmark.
func findContainer(doc *Document, l Landmarks) (*goquery.Selection, error) {
	sel := doc.Find(l.Container).First()
	if sel.Length() == 0 {
		return nil, missing("container", l.Container)
	}
	return sel, nil
}

// firstText returns the trimmed text of the first match of selector under
// root, or fallback when nothing matches.
func firstText(root *goquery.Selection, selector, fallback string) string {
	sel := root.Find(selector).First()
	if sel.Length() == 0 {
		return fallback
	}
	return strings.TrimSpace(sel.Text())
}

// singleLine trims s and drops embedded newlines.
func singleLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "")
}
