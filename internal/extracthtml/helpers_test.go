package extracthtml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writePage writes html to a file in a fresh temp dir and returns its path.
func writePage(t *testing.T, name, html string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(html), 0o600))
	return p
}

// mustParse parses html as a Document for extractor tests.
func mustParse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := Parse("test.htm", html)
	require.NoError(t, err)
	return doc
}

const friendsPage = `<html><head><title>Friends</title></head><body>
<div class="nav"><h2>Navigation</h2></div>
<div class="contents"><h1>Jane Doe</h1>
<h2>College Friends</h2>
<ul><li>Ann Archer</li><li> Ben Baker </li><li>Cat Cole</li></ul>
<h2>Work Friends</h2>
</div></body></html>`

const messagesPage = `<html><body><div class="contents"><h1>Jane Doe</h1>
<div class="thread">Jane Doe, Bob Brown
<div class="message"><div class="message_header"><span class="user">Bob Brown</span><span class="meta">Monday, 1 January 2018 at 10:00 UTC</span></div></div>
<p>Hi Jane</p>
</div>
<div class="thread">
Jane Doe, Alice Adams
<div class="message"><div class="message_header"><span class="user">Alice Adams</span><span class="meta">Tuesday, 2 January 2018 at 09:00 UTC</span></div></div>
<p>First</p>
<div class="message"><div class="message_header"><span class="user">Jane Doe</span></div></div>
<p>No timestamp</p>
<div class="message"><div class="message_header"><span class="user">Alice Adams</span><span class="meta">Tuesday, 2 January 2018 at 09:05 UTC</span></div></div>
<p>Third
line</p>
</div>
</div></body></html>`

const timelinePage = `<html><body><div class="contents"><h1>Jane Doe</h1><div>
<p><div class="meta">Monday, 1 January 2018 at 10:00 UTC</div><div class="comment">Hello world</div></p>
<p><div class="meta">Tuesday, 2 January 2018 at 11:00 UTC</div>Jane Doe updated her profile picture.</p>
<p><div class="comment">No date on this one</div></p>
</div></div></body></html>`
