package extracthtml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidBound is returned for pagination values that are not
// non-negative base-10 integers.
var ErrInvalidBound = errors.New("invalid pagination bound")

// Pagination selects a window of threads. A nil field is "not given".
type Pagination struct {
	MaxThreads *int
	Offset     *int
}

// IsZero reports whether neither bound is set.
func (p Pagination) IsZero() bool {
	return p.MaxThreads == nil && p.Offset == nil
}

// Validate rejects negative bounds.
func (p Pagination) Validate() error {
	if p.MaxThreads != nil && *p.MaxThreads < 0 {
		return fmt.Errorf("%w: max_threads=%d must be >= 0", ErrInvalidBound, *p.MaxThreads)
	}
	if p.Offset != nil && *p.Offset < 0 {
		return fmt.Errorf("%w: offset=%d must be >= 0", ErrInvalidBound, *p.Offset)
	}
	return nil
}

// ParsePagination parses raw flag values. Empty strings mean "not given".
func ParsePagination(maxThreads, offset string) (Pagination, error) {
	var (
		p   Pagination
		err error
	)
	if p.MaxThreads, err = ParseBound("max_threads", maxThreads); err != nil {
		return Pagination{}, err
	}
	if p.Offset, err = ParseBound("offset", offset); err != nil {
		return Pagination{}, err
	}
	return p, nil
}

// ParseBound parses one pagination value. It returns nil for an empty
// string and an error wrapping ErrInvalidBound for anything that is not a
// non-negative integer.
func ParseBound(name, raw string) (*int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidBound, name, raw)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %s=%d must be >= 0", ErrInvalidBound, name, n)
	}
	return &n, nil
}

// Apply returns the window of threads selected by p:
//
//	only MaxThreads: threads[:min(m, total)]
//	only Offset:     threads[min(o, total):]
//	both:            threads[min(o, total):min(o+m, total)]
//	neither:         threads
//
// Apply assumes p has been validated.
func (p Pagination) Apply(threads []Thread) []Thread {
	total := len(threads)

	lo := 0
	if p.Offset != nil {
		lo = min(*p.Offset, total)
	}
	hi := total
	if p.MaxThreads != nil && *p.MaxThreads < total-lo {
		hi = lo + *p.MaxThreads
	}

	out := threads[lo:hi]
	if out == nil {
		return []Thread{}
	}
	return out
}

// Paginate returns a copy of r holding only the threads selected by p.
func (r *MessagesRecord) Paginate(p Pagination) *MessagesRecord {
	return &MessagesRecord{User: r.User, Threads: p.Apply(r.Threads)}
}
