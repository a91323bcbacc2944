package extracthtml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLandmarks_Valid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultLandmarks().Validate())
}

func TestLandmarks_Merge(t *testing.T) {
	t.Parallel()

	got := DefaultLandmarks().Merge(Landmarks{Container: " main#content ", Sender: "b.from", Timestamp: "   "})

	assert.Equal(t, "main#content", got.Container)
	assert.Equal(t, "b.from", got.Sender)
	assert.Equal(t, "span.meta", got.Timestamp, "blank override keeps default")
	assert.Equal(t, "div.thread", got.Thread)
	assert.Equal(t, "div.contents", DefaultLandmarks().Container, "defaults are not mutated")
}

func TestLandmarks_Validate(t *testing.T) {
	t.Parallel()

	empty := DefaultLandmarks()
	empty.PostMeta = ""
	err := empty.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post_meta")

	bad := DefaultLandmarks()
	bad.Thread = "div..thread"
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thread")
}
