package extracthtml

import (
	"fmt"
	"sort"
	"strings"
)

// Category names one page of the export and the extractor that reads it.
type Category string

const (
	CategoryFriends         Category = "friends"
	CategoryPhotos          Category = "photos"
	CategoryVideos          Category = "videos"
	CategoryMessages        Category = "messages"
	CategoryPokes           Category = "pokes"
	CategoryTimeline        Category = "timeline"
	CategoryEvents          Category = "events"
	CategorySecurity        Category = "security"
	CategoryAds             Category = "ads"
	CategoryMobileDevices   Category = "mobile_devices"
	CategoryPlaces          Category = "places"
	CategorySurveyResponses Category = "survey_responses"
)

// AllCategories lists every category the command accepts, in flag order.
func AllCategories() []Category {
	return []Category{
		CategoryFriends,
		CategoryPhotos,
		CategoryVideos,
		CategoryMessages,
		CategoryPokes,
		CategoryTimeline,
		CategoryEvents,
		CategorySecurity,
		CategoryAds,
		CategoryMobileDevices,
		CategoryPlaces,
		CategorySurveyResponses,
	}
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts a category tag, case-insensitively.
func ParseCategory(s string) (Category, error) {
	want := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range AllCategories() {
		if c == want {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Extractor turns one parsed export page into a Record.
type Extractor interface {
	Extract(doc *Document) (Record, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(doc *Document) (Record, error)

func (f ExtractorFunc) Extract(doc *Document) (Record, error) { return f(doc) }

// Registry maps categories to extractors.
type Registry struct {
	extractors map[Category]Extractor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[Category]Extractor)}
}

// NewDefaultRegistry registers the friends, timeline and messages extractors
// built on l, and an Unsupported placeholder for every other category.
func NewDefaultRegistry(l Landmarks) *Registry {
	r := NewRegistry()
	for _, c := range AllCategories() {
		r.Register(c, Unsupported(c))
	}
	r.Register(CategoryFriends, NewFriendsExtractor(l))
	r.Register(CategoryTimeline, NewTimelineExtractor(l))
	r.Register(CategoryMessages, NewMessagesExtractor(l))
	return r
}

// Register adds or replaces the extractor for c.
func (r *Registry) Register(c Category, e Extractor) {
	r.extractors[c] = e
}

// Get returns the extractor for c.
func (r *Registry) Get(c Category) (Extractor, error) {
	e, ok := r.extractors[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return e, nil
}

// List returns the registered categories sorted by name.
func (r *Registry) List() []Category {
	out := make([]Category, 0, len(r.extractors))
	for c := range r.extractors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Unsupported returns the placeholder extractor for categories whose markup
// is not extracted yet. It reports the category explicitly instead of
// returning an empty record.
func Unsupported(c Category) Extractor {
	return ExtractorFunc(func(doc *Document) (Record, error) {
		return &UnsupportedRecord{Category: c, Supported: false, Source: doc.Source}, nil
	})
}
