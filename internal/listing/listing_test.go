package listing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var testEntries = []Entry{
	{Path: "hello.txt", Size: 13},
	{Path: "native/core.node", Size: 4096, Unpacked: true},
	{Path: "sub/world.txt", Size: 12},
}

func TestRenderPlain(t *testing.T) {
	t.Parallel()

	out, err := Render("plain", testEntries)
	require.NoError(t, err)
	assert.Equal(t, "hello.txt\nnative/core.node\nsub/world.txt", out)
}

func TestRenderLong(t *testing.T) {
	t.Parallel()

	out, err := Render("long", testEntries)
	require.NoError(t, err)
	assert.Contains(t, out, "SIZE  PATH")
	assert.Contains(t, out, "        13  hello.txt")
	assert.Contains(t, out, "      4096  native/core.node  [unpacked]")
	assert.NotContains(t, out, "world.txt  [unpacked]")
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	out, err := Render("json", testEntries)
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, testEntries, decoded)
}

func TestRenderXML(t *testing.T) {
	t.Parallel()

	out, err := Render("xml", testEntries)
	require.NoError(t, err)
	assert.Contains(t, out, `<archive>`)
	assert.Contains(t, out, `<file path="hello.txt" size="13"`)
	assert.Contains(t, out, `unpacked="true"`)
}

func TestRenderYAML(t *testing.T) {
	t.Parallel()

	out, err := Render("yaml", testEntries)
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, testEntries, decoded)
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Render("csv", testEntries)
	assert.Error(t, err)
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	out, err := Render("plain", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
