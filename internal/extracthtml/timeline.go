package extracthtml

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TimelineExtractor reads the timeline page: a wrapper element holding one
// paragraph per entry, where real posts carry a comment block and a meta
// block with the timestamp.
type TimelineExtractor struct {
	landmarks Landmarks
}

func NewTimelineExtractor(l Landmarks) *TimelineExtractor {
	return &TimelineExtractor{landmarks: l}
}

// Extract returns a *TimelineRecord. Entries without a comment block are
// decoration and are skipped. The wrapper is mandatory.
func (e *TimelineExtractor) Extract(doc *Document) (Record, error) {
	l := e.landmarks

	container, err := findContainer(doc, l)
	if err != nil {
		return nil, err
	}

	rec := &TimelineRecord{
		User:  firstText(container, l.UserName, NameNotFound),
		Posts: []Post{},
	}

	wrapper := container.ChildrenFiltered(l.TimelineWrapper).First()
	if wrapper.Length() == 0 {
		return nil, missing("timeline wrapper", l.Container+" > "+l.TimelineWrapper)
	}

	wrapper.Find(l.TimelineEntry).Each(func(_ int, p *goquery.Selection) {
		comment := findInEntry(p, l.TimelineEntry, l.PostComment)
		if comment.Length() == 0 {
			return
		}
		stamp := NoDateTimeFound
		if meta := findInEntry(p, l.TimelineEntry, l.PostMeta); meta.Length() > 0 {
			stamp = strings.TrimSpace(meta.Text())
		}
		rec.Posts = append(rec.Posts, Post{
			DateTime: stamp,
			Text:     strings.TrimSpace(comment.Text()),
		})
	})

	return rec, nil
}

// findInEntry finds the first match of selector belonging to entry.
//
// The export nests block elements inside paragraphs. An HTML5 parser closes
// the paragraph at the first nested block, which turns those blocks into
// siblings that follow it. They still belong to the entry, up to the next
// entry element.
func findInEntry(entry *goquery.Selection, entrySelector, selector string) *goquery.Selection {
	if sel := entry.Find(selector).First(); sel.Length() > 0 {
		return sel
	}

	var found *goquery.Selection
	entry.NextUntil(entrySelector).EachWithBreak(func(_ int, sib *goquery.Selection) bool {
		if sib.Is(selector) {
			found = sib
			return false
		}
		if sel := sib.Find(selector).First(); sel.Length() > 0 {
			found = sel
			return false
		}
		return true
	})
	if found == nil {
		return entry.Slice(0, 0)
	}
	return found
}
