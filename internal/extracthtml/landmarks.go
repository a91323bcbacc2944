package extracthtml

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Landmarks holds the CSS selectors the extractors depend on. The defaults
// match the markup of the export tool; a config file may override any of them.
type Landmarks struct {
	Container string `yaml:"container" json:"container"` // root element holding a page's content
	UserName  string `yaml:"user_name" json:"user_name"` // evaluated inside Container

	// friends-like pages
	CategoryHeading string `yaml:"category_heading" json:"category_heading"`
	CategoryList    string `yaml:"category_list" json:"category_list"` // sibling following a heading
	CategoryItem    string `yaml:"category_item" json:"category_item"`

	// timeline
	TimelineWrapper string `yaml:"timeline_wrapper" json:"timeline_wrapper"` // direct child of Container
	TimelineEntry   string `yaml:"timeline_entry" json:"timeline_entry"`
	PostMeta        string `yaml:"post_meta" json:"post_meta"`
	PostComment     string `yaml:"post_comment" json:"post_comment"`

	// messages
	Thread        string `yaml:"thread" json:"thread"`
	MessageBody   string `yaml:"message_body" json:"message_body"`
	MessageBlock  string `yaml:"message_block" json:"message_block"`   // preceding sibling of a body
	MessageHeader string `yaml:"message_header" json:"message_header"` // inside MessageBlock
	Sender        string `yaml:"sender" json:"sender"`
	Timestamp     string `yaml:"timestamp" json:"timestamp"`
}

// DefaultLandmarks returns the selectors for the export tool's markup.
func DefaultLandmarks() Landmarks {
	return Landmarks{
		Container:       "div.contents",
		UserName:        "h1",
		CategoryHeading: "h2",
		CategoryList:    "ul",
		CategoryItem:    "li",
		TimelineWrapper: "div",
		TimelineEntry:   "p",
		PostMeta:        "div.meta",
		PostComment:     "div.comment",
		Thread:          "div.thread",
		MessageBody:     "p",
		MessageBlock:    "div",
		MessageHeader:   "div",
		Sender:          "span.user",
		Timestamp:       "span.meta",
	}
}

type landmarkField struct {
	name string
	ptr  *string
}

func (l *Landmarks) fields() []landmarkField {
	return []landmarkField{
		{"container", &l.Container},
		{"user_name", &l.UserName},
		{"category_heading", &l.CategoryHeading},
		{"category_list", &l.CategoryList},
		{"category_item", &l.CategoryItem},
		{"timeline_wrapper", &l.TimelineWrapper},
		{"timeline_entry", &l.TimelineEntry},
		{"post_meta", &l.PostMeta},
		{"post_comment", &l.PostComment},
		{"thread", &l.Thread},
		{"message_body", &l.MessageBody},
		{"message_block", &l.MessageBlock},
		{"message_header", &l.MessageHeader},
		{"sender", &l.Sender},
		{"timestamp", &l.Timestamp},
	}
}

// Merge returns l with every non-empty selector of override applied.
func (l Landmarks) Merge(override Landmarks) Landmarks {
	out := l
	dst := out.fields()
	for i, f := range override.fields() {
		if v := strings.TrimSpace(*f.ptr); v != "" {
			*dst[i].ptr = v
		}
	}
	return out
}

// Validate checks that every selector is present and compiles. goquery
// panics on invalid selectors, so this must run before extraction.
func (l Landmarks) Validate() error {
	for _, f := range l.fields() {
		if strings.TrimSpace(*f.ptr) == "" {
			return fmt.Errorf("landmark %s: empty selector", f.name)
		}
		if _, err := cascadia.Compile(*f.ptr); err != nil {
			return fmt.Errorf("landmark %s: invalid selector %q: %w", f.name, *f.ptr, err)
		}
	}
	return nil
}
