package extracthtml

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MessagesExtractor reads the messages page: one block per thread, each
// opening with the participants as free text, followed by alternating header
// blocks (sender, timestamp) and body paragraphs.
type MessagesExtractor struct {
	landmarks Landmarks
}

func NewMessagesExtractor(l Landmarks) *MessagesExtractor {
	return &MessagesExtractor{landmarks: l}
}

// Extract returns a *MessagesRecord with threads and messages in document
// order. A body whose preceding header lacks a sender or a timestamp is
// dropped.
func (e *MessagesExtractor) Extract(doc *Document) (Record, error) {
	l := e.landmarks

	container, err := findContainer(doc, l)
	if err != nil {
		return nil, err
	}

	rec := &MessagesRecord{
		User:    firstText(container, l.UserName, UnknownUser),
		Threads: []Thread{},
	}

	container.Find(l.Thread).Each(func(_ int, th *goquery.Selection) {
		thread := Thread{
			Between:  leadingText(th),
			Messages: []Message{},
		}
		th.Find(l.MessageBody).Each(func(_ int, p *goquery.Selection) {
			if m, ok := e.message(p); ok {
				thread.Messages = append(thread.Messages, m)
			}
		})
		rec.Threads = append(rec.Threads, thread)
	})

	return rec, nil
}

// message pairs body with the header found in its nearest preceding block.
func (e *MessagesExtractor) message(body *goquery.Selection) (Message, bool) {
	l := e.landmarks

	block := body.Prev()
	for block.Length() > 0 && !block.Is(l.MessageBlock) {
		block = block.Prev()
	}
	if block.Length() == 0 {
		return Message{}, false
	}

	header := block.Find(l.MessageHeader).First()
	sender := header.Find(l.Sender).First()
	stamp := header.Find(l.Timestamp).First()
	if sender.Length() == 0 || stamp.Length() == 0 {
		return Message{}, false
	}

	return Message{
		User:     singleLine(sender.Text()),
		DateTime: singleLine(stamp.Text()),
		Text:     singleLine(body.Text()),
	}, true
}

// leadingText returns the first non-blank text node directly under sel.
// In a thread block that is the participants list.
func leadingText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for c := sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return singleLine(c.Data)
		}
	}
	return ""
}
