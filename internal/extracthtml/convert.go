package extracthtml

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"fbe2json/internal/metrics"
)

// Converter runs one load → parse → extract pass over an export page.
type Converter struct {
	Loader   *Loader
	Registry *Registry
	Logger   *slog.Logger
}

// NewConverter returns a Converter using the default registry built on l.
func NewConverter(l Landmarks, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		Loader:   NewLoader(),
		Registry: NewDefaultRegistry(l),
		Logger:   logger,
	}
}

// Load reads and parses the page at path.
func (c *Converter) Load(ctx context.Context, path string) (*Document, error) {
	var html string
	err := metrics.Time("load", func() error {
		var err error
		html, err = c.Loader.Load(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded export page", "path", path, "bytes", len(html))

	var doc *Document
	err = metrics.Time("parse", func() error {
		var err error
		doc, err = Parse(path, html)
		return err
	})
	return doc, err
}

// Convert extracts the record for category from the page at path.
func (c *Converter) Convert(ctx context.Context, category Category, path string) (Record, error) {
	ext, err := c.Registry.Get(category)
	if err != nil {
		return nil, err
	}

	doc, err := c.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	var rec Record
	err = metrics.Time("extract", func() error {
		var err error
		rec, err = ext.Extract(doc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("extract %s from %s: %w", category, path, err)
	}

	if u, ok := rec.(*UnsupportedRecord); ok {
		c.Logger.Warn("category is not supported yet", "category", u.Category, "path", path)
		return rec, nil
	}

	counts := rec.Counts()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	attrs := []any{"category", category}
	for _, k := range kinds {
		metrics.RecordRecords(k, counts[k])
		attrs = append(attrs, k, counts[k])
	}
	c.Logger.Info("extracted record", attrs...)
	return rec, nil
}
