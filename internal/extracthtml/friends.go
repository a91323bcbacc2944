package extracthtml

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FriendsExtractor reads pages laid out as a user heading followed by
// labeled lists: one second-level heading per label, each followed by a list
// of items.
type FriendsExtractor struct {
	landmarks Landmarks
}

func NewFriendsExtractor(l Landmarks) *FriendsExtractor {
	return &FriendsExtractor{landmarks: l}
}

// Extract returns a *FriendsRecord. Every heading becomes a key; a heading
// with no list before the next heading maps to an empty list.
func (e *FriendsExtractor) Extract(doc *Document) (Record, error) {
	l := e.landmarks

	container, err := findContainer(doc, l)
	if err != nil {
		return nil, err
	}

	rec := &FriendsRecord{User: firstText(container, l.UserName, NameNotFound)}

	container.Find(l.CategoryHeading).Each(func(_ int, h *goquery.Selection) {
		label := strings.TrimSpace(h.Text())
		items := []string{}

		list := h.NextUntil(l.CategoryHeading).Filter(l.CategoryList).First()
		list.Find(l.CategoryItem).Each(func(_ int, li *goquery.Selection) {
			items = append(items, strings.TrimSpace(li.Text()))
		})

		rec.Categories.Set(label, items)
	})

	return rec, nil
}
