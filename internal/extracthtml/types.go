package extracthtml

import (
	"bytes"
	"encoding/json"
)

// Defaults emitted when an optional landmark is absent.
const (
	NameNotFound    = "Name Not Found"
	UnknownUser     = "Unknown User"
	NoDateTimeFound = "No DateTime Found"
)

// Record is the category-specific result of one extraction. Every Record
// serializes directly to the JSON printed by the command.
type Record interface {
	// Counts reports how many entities of each kind the record holds
	// (e.g. "threads", "messages"). Used for metrics and logging.
	Counts() map[string]int
}

// FriendsRecord is produced by friends-like categories.
type FriendsRecord struct {
	User       string     `json:"User"`
	Categories Categories `json:"Categories"`
}

func (r *FriendsRecord) Counts() map[string]int {
	items := 0
	for _, label := range r.Categories.Labels() {
		v, _ := r.Categories.Get(label)
		items += len(v)
	}
	return map[string]int{"categories": r.Categories.Len(), "items": items}
}

// Categories maps a heading label to its list items and remembers the order
// in which labels first appeared in the document.
type Categories struct {
	labels []string
	items  map[string][]string
}

// Set stores items under label. A label seen before keeps its original
// position and takes the new items.
func (c *Categories) Set(label string, items []string) {
	if c.items == nil {
		c.items = make(map[string][]string)
	}
	if _, ok := c.items[label]; !ok {
		c.labels = append(c.labels, label)
	}
	if items == nil {
		items = []string{}
	}
	c.items[label] = items
}

// Get returns the items stored under label.
func (c Categories) Get(label string) ([]string, bool) {
	v, ok := c.items[label]
	return v, ok
}

// Labels returns the labels in document order.
func (c Categories) Labels() []string {
	return append([]string(nil), c.labels...)
}

func (c Categories) Len() int { return len(c.labels) }

// MarshalJSON writes the labels as an object in document order.
func (c Categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range c.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalNoEscape(label)
		if err != nil {
			return nil, err
		}
		v, err := marshalNoEscape(c.items[label])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape is json.Marshal without HTML escaping, so the command's
// encoder settings apply uniformly to nested values.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// TimelineRecord is produced by the timeline category.
type TimelineRecord struct {
	User  string `json:"User"`
	Posts []Post `json:"Posts"`
}

func (r *TimelineRecord) Counts() map[string]int {
	return map[string]int{"posts": len(r.Posts)}
}

// Post is one timeline entry.
type Post struct {
	DateTime string `json:"datetime"`
	Text     string `json:"post"`
}

// MessagesRecord is produced by the messages category.
type MessagesRecord struct {
	User    string   `json:"user"`
	Threads []Thread `json:"threads"`
}

func (r *MessagesRecord) Counts() map[string]int {
	msgs := 0
	for _, t := range r.Threads {
		msgs += len(t.Messages)
	}
	return map[string]int{"threads": len(r.Threads), "messages": msgs}
}

// Thread is one conversation. Between holds the participants label as
// written in the export.
type Thread struct {
	Between  string    `json:"between"`
	Messages []Message `json:"messages"`
}

// Message fields are opaque strings; timestamps are not parsed.
type Message struct {
	User     string `json:"user"`
	DateTime string `json:"datetime"`
	Text     string `json:"message"`
}

// UnsupportedRecord is returned for categories whose markup is not extracted yet.
type UnsupportedRecord struct {
	Category  Category `json:"category"`
	Supported bool     `json:"supported"`
	Source    string   `json:"source"`
}

func (r *UnsupportedRecord) Counts() map[string]int { return map[string]int{} }
