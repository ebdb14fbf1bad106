package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/model"
)

func tagDoc(name string, fields map[string]any) model.Document {
	return model.Document{Type: key.Tag, Name: name, Fields: fields}
}

func templateDoc(name, content string) model.Document {
	return model.Document{
		Type: "template",
		Name: name,
		Fields: map[string]any{
			"content": content,
		},
	}
}

func TestFeedAuthoredObjectDirectly(t *testing.T) {
	ns := New(RedefinitionError)
	require.NoError(t, ns.Feed(tagDoc("f40-build", nil)))
	require.NoError(t, ns.Expand())

	obj, ok := ns.Get(key.New(key.Tag, "f40-build"))
	require.True(t, ok)
	assert.Equal(t, key.New(key.Tag, "f40-build"), obj.Key())
}

func TestExpandResolvesInvocationOnceTemplateArrives(t *testing.T) {
	ns := New(RedefinitionError)

	// invocation fed before its template is registered: must defer.
	require.NoError(t, ns.Feed(model.Document{
		Type:   "build-tag",
		Name:   "",
		Fields: map[string]any{"tagname": "f40-build"},
	}))
	require.NoError(t, ns.Feed(templateDoc("build-tag", `
type: tag
name: {{.tagname}}
`)))

	require.NoError(t, ns.Expand())

	_, ok := ns.Get(key.New(key.Tag, "f40-build"))
	assert.True(t, ok, "deferred invocation should resolve once its template registers")
}

func TestExpandDeadlocksOnUndefinedTemplate(t *testing.T) {
	ns := New(RedefinitionError)
	require.NoError(t, ns.Feed(model.Document{Type: "never-defined", Fields: map[string]any{}}))

	err := ns.Expand()
	require.Error(t, err, "an invocation of a template that never registers must deadlock")
}

func TestRedefinitionPolicies(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		ns := New(RedefinitionError)
		require.NoError(t, ns.Feed(tagDoc("dup", nil)))
		err := ns.Feed(tagDoc("dup", nil))
		assert.Error(t, err)
	})

	t.Run("ignore", func(t *testing.T) {
		ns := New(RedefinitionIgnore)
		require.NoError(t, ns.Feed(tagDoc("dup", map[string]any{"arches": []any{"x86_64"}})))
		require.NoError(t, ns.Feed(tagDoc("dup", map[string]any{"arches": []any{"aarch64"}})))
		obj, ok := ns.Get(key.New(key.Tag, "dup"))
		require.True(t, ok)
		tag := obj.(*model.Tag)
		assert.Equal(t, []string{"x86_64"}, tag.Arches, "first definition wins under ignore policy")
	})

	t.Run("allow silently overwrites", func(t *testing.T) {
		ns := New(RedefinitionAllowSilently)
		require.NoError(t, ns.Feed(tagDoc("dup", map[string]any{"arches": []any{"x86_64"}})))
		err := ns.Feed(tagDoc("dup", map[string]any{"arches": []any{"aarch64"}}))
		require.NoError(t, err)
	})
}

func TestSeedTemplates(t *testing.T) {
	tmplNS := New(RedefinitionError)
	require.NoError(t, tmplNS.Feed(templateDoc("build-tag", "type: tag\nname: {{.tagname}}\n")))

	dataNS := New(RedefinitionError)
	dataNS.SeedTemplates(tmplNS)

	_, ok := dataNS.Templates()["build-tag"]
	assert.True(t, ok, "seeded templates must be visible on the data namespace")
}
