package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMergesDefaultsAndOverridesAndValidatesRequired(t *testing.T) {
	tmpl, err := New(
		"build-tag",
		map[string]any{"arches": "x86_64"},
		[]string{"tagname"},
		"type: tag\nname: {{.tagname}}\narches: {{.arches}}\n",
		"templates/build-tag.yaml",
		3,
	)
	require.NoError(t, err)

	// missing required param
	_, err = tmpl.Render(Invocation{TemplateName: "build-tag", Params: map[string]any{}})
	require.Error(t, err)

	docs, err := tmpl.Render(Invocation{
		TemplateName: "build-tag",
		Params:       map[string]any{"tagname": "f40-build"},
		File:         "data/f40.yaml",
		Line:         10,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "tag", docs[0].Type)
	assert.Equal(t, "f40-build", docs[0].Name)
	assert.Equal(t, "x86_64", docs[0].Fields["arches"], "unset param falls back to the template's default")

	require.Len(t, docs[0].Trace, 1)
	assert.Equal(t, "build-tag", docs[0].Trace[0].Template)
}

func TestRenderOverridesDefault(t *testing.T) {
	tmpl, err := New(
		"build-tag",
		map[string]any{"arches": "x86_64"},
		nil,
		"type: tag\nname: t\narches: {{.arches}}\n",
		"f", 1,
	)
	require.NoError(t, err)

	docs, err := tmpl.Render(Invocation{TemplateName: "build-tag", Params: map[string]any{"arches": "aarch64"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "aarch64", docs[0].Fields["arches"])
}

func TestRenderMultiDocument(t *testing.T) {
	tmpl, err := New(
		"two-tags",
		nil, nil,
		"type: tag\nname: a\n---\ntype: tag\nname: b\n",
		"f", 1,
	)
	require.NoError(t, err)

	docs, err := tmpl.Render(Invocation{TemplateName: "two-tags", Params: map[string]any{}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].Name)
	assert.Equal(t, "b", docs[1].Name)
}

func TestNewRejectsEmptyNameOrContent(t *testing.T) {
	_, err := New("", nil, nil, "type: tag\nname: x\n", "f", 1)
	assert.Error(t, err)

	_, err = New("x", nil, nil, "", "f", 1)
	assert.Error(t, err)
}

func TestNewRejectsMalformedTemplateBody(t *testing.T) {
	_, err := New("broken", nil, nil, "{{ .unterminated", "f", 1)
	assert.Error(t, err)
}

func TestDefaultFuncFallsBackOnEmpty(t *testing.T) {
	tmpl, err := New(
		"with-default",
		nil, nil,
		`type: tag
name: t
arches: {{ default "x86_64" .arches }}
`,
		"f", 1,
	)
	require.NoError(t, err)

	docs, err := tmpl.Render(Invocation{TemplateName: "with-default", Params: map[string]any{}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "x86_64", docs[0].Fields["arches"])
}
