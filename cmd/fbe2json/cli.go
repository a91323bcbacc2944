package main

import (
	"errors"
	"fmt"
	"strings"

	"fbe2json/internal/config"
	"fbe2json/internal/extracthtml"
	"fbe2json/internal/metrics/datadog"
)

// CLI is the fbe2json command line. Exactly one category selector must be
// given; kong rejects two through the xor group.
type CLI struct {
	Friends         string `name:"friends" xor:"category" placeholder:"PATH" help:"Path to the friends page."`
	Photos          string `name:"photos" xor:"category" placeholder:"PATH" help:"Path to the photos page (not extracted yet)."`
	Videos          string `name:"videos" xor:"category" placeholder:"PATH" help:"Path to the videos page (not extracted yet)."`
	Messages        string `name:"messages" xor:"category" placeholder:"PATH" help:"Path to the messages page."`
	Pokes           string `name:"pokes" xor:"category" placeholder:"PATH" help:"Path to the pokes page (not extracted yet)."`
	Timeline        string `name:"timeline" xor:"category" placeholder:"PATH" help:"Path to the timeline page."`
	Events          string `name:"events" xor:"category" placeholder:"PATH" help:"Path to the events page (not extracted yet)."`
	Security        string `name:"security" xor:"category" placeholder:"PATH" help:"Path to the security page (not extracted yet)."`
	Ads             string `name:"ads" xor:"category" placeholder:"PATH" help:"Path to the ads page (not extracted yet)."`
	MobileDevices   string `name:"mobile_devices" xor:"category" placeholder:"PATH" help:"Path to the mobile devices page (not extracted yet)."`
	Places          string `name:"places" xor:"category" placeholder:"PATH" help:"Path to the places page (not extracted yet)."`
	SurveyResponses string `name:"survey_responses" xor:"category" placeholder:"PATH" help:"Path to the survey responses page (not extracted yet)."`

	MaxThreads string `name:"max-threads" placeholder:"N" help:"Messages only: keep at most N threads."`
	Offset     string `name:"offset" placeholder:"N" help:"Messages only: skip the first N threads."`

	Config         string `name:"config" placeholder:"FILE" help:"YAML config file."`
	LogLevel       string `name:"log-level" env:"FBE2JSON_LOG_LEVEL" help:"debug, info, warn, error or none."`
	LogFormat      string `name:"log-format" env:"FBE2JSON_LOG_FORMAT" help:"text or json."`
	MetricsBackend string `name:"metrics-backend" env:"METRICS_BACKEND" help:"none or datadog."`
	MetricsTags    string `name:"metrics-tags" env:"METRICS_TAGS" placeholder:"K:V,..." help:"Extra Datadog tags."`
	Indent         string `name:"indent" placeholder:"N" help:"Spaces per JSON indent level (default 4)."`

	DebugSelector string `name:"debug-selector" placeholder:"CSS" help:"Print elements of the selected page matching CSS instead of JSON."`
	Text          bool   `name:"text" help:"With --debug-selector, print trimmed text instead of outer HTML."`
}

var errUsage = errors.New("usage")

// selection returns the chosen category and its path.
func (c *CLI) selection() (extracthtml.Category, string, error) {
	given := map[extracthtml.Category]string{
		extracthtml.CategoryFriends:         c.Friends,
		extracthtml.CategoryPhotos:          c.Photos,
		extracthtml.CategoryVideos:          c.Videos,
		extracthtml.CategoryMessages:        c.Messages,
		extracthtml.CategoryPokes:           c.Pokes,
		extracthtml.CategoryTimeline:        c.Timeline,
		extracthtml.CategoryEvents:          c.Events,
		extracthtml.CategorySecurity:        c.Security,
		extracthtml.CategoryAds:             c.Ads,
		extracthtml.CategoryMobileDevices:   c.MobileDevices,
		extracthtml.CategoryPlaces:          c.Places,
		extracthtml.CategorySurveyResponses: c.SurveyResponses,
	}

	var chosen []extracthtml.Category
	for _, cat := range extracthtml.AllCategories() {
		if given[cat] != "" {
			chosen = append(chosen, cat)
		}
	}
	switch len(chosen) {
	case 0:
		return "", "", fmt.Errorf("%w: one of --%s is required", errUsage, joinCategories(extracthtml.AllCategories(), ", --"))
	case 1:
		return chosen[0], given[chosen[0]], nil
	default:
		return "", "", fmt.Errorf("%w: --%s can't be used together", errUsage, joinCategories(chosen, " and --"))
	}
}

func joinCategories(cs []extracthtml.Category, sep string) string {
	s := make([]string, len(cs))
	for i, c := range cs {
		s[i] = c.String()
	}
	return strings.Join(s, sep)
}

// pagination parses --max-threads and --offset for category.
func (c *CLI) pagination(category extracthtml.Category) (extracthtml.Pagination, error) {
	p, err := extracthtml.ParsePagination(c.MaxThreads, c.Offset)
	if err != nil {
		return extracthtml.Pagination{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	if !p.IsZero() && category != extracthtml.CategoryMessages {
		return extracthtml.Pagination{}, fmt.Errorf("%w: --max-threads and --offset only apply to --messages", errUsage)
	}
	return p, nil
}

func (c *CLI) overrides() config.Overrides {
	return config.Overrides{
		LogLevel:       c.LogLevel,
		LogFormat:      c.LogFormat,
		MetricsBackend: c.MetricsBackend,
		MetricsTags:    datadog.ParseTagsCSV(c.MetricsTags),
		Indent:         c.Indent,
	}
}
