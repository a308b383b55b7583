package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, offset, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
	require.Zero(t, offset)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\nkind: article\n---\n# Title\n")

	fm, body, offset, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("kind: article\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
	require.Equal(t, "# Title\n", string(input[offset:]))
}

func TestSplit_EmptyFrontmatter(t *testing.T) {
	fm, body, _, had, err := Split([]byte("---\n---\nBody\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("Body\n"), body)
}

func TestSplit_CRLF(t *testing.T) {
	fm, body, _, had, err := Split([]byte("---\r\ntitle: X\r\n---\r\nBody\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: X\r\n"), fm)
	require.Equal(t, []byte("Body\r\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, _, had, err := Split([]byte("---\nkey: value\n# Title\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
	require.False(t, had)
}

func TestDecode(t *testing.T) {
	md, err := Decode([]byte("title: Getting Started\nkind: tutorial\ntechnology_root: true\nautomatic_see_also: disabled\n"))
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		Title:            "Getting Started",
		Kind:             "tutorial",
		TechnologyRoot:   true,
		AutomaticSeeAlso: "disabled",
	}, md)

	md, err = Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, md)

	_, err = Decode([]byte("title: [unterminated"))
	require.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	fields, err := ParseYAML([]byte("a: 1\nb: two\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, fields["a"])
	assert.Equal(t, "two", fields["b"])

	fields, err = ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, fields)
}
