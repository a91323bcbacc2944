package extracthtml

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// DebugPrintSelector prints the outer HTML, or with textOnly the trimmed
// text, of every element in doc matching selector, each followed by a blank
// line. It returns the number of matches. Used by the command's
// --debug-selector mode when adjusting landmarks for a new export.
func DebugPrintSelector(w io.Writer, doc *Document, selector string, textOnly bool) (int, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return 0, fmt.Errorf("compile selector %q: %w", selector, err)
	}

	var (
		n     int
		wrErr error
	)
	doc.FindMatcher(m).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n++
		var block string
		if textOnly {
			block = strings.TrimSpace(s.Text())
		} else if out, err := goquery.OuterHtml(s); err == nil {
			block = out
		} else {
			block, _ = s.Html()
		}
		_, wrErr = fmt.Fprintf(w, "%s\n\n", block)
		return wrErr == nil
	})
	if wrErr != nil {
		return n, fmt.Errorf("write match: %w", wrErr)
	}
	return n, nil
}
