package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/model"
)

func TestDumpRecordIncludesIdentityAndProvenance(t *testing.T) {
	tag, err := model.BuildTag(model.Document{
		Type: "tag", Name: "f40-build",
		File: "tags.yaml", Line: 3,
		Fields: map[string]any{"inheritance": []any{"f40-base"}},
	})
	require.NoError(t, err)

	rec := dumpRecord(tag.Key(), tag)
	assert.Equal(t, key.Tag, rec["type"])
	assert.Equal(t, "f40-build", rec["name"])
	assert.Equal(t, "tags.yaml", rec["file"])
	assert.Equal(t, 3, rec["line"])
	assert.Contains(t, rec["depends"], key.New(key.Tag, "f40-base").String())
}

func TestDependencyStringsMatchesObjectDependencyKeys(t *testing.T) {
	tag, err := model.BuildTag(model.Document{
		Type: "tag", Name: "f40-build",
		Fields: map[string]any{"inheritance": []any{"f40-base"}},
	})
	require.NoError(t, err)

	deps := dependencyStrings(tag)
	require.Len(t, deps, len(tag.DependencyKeys()))
	for i, d := range tag.DependencyKeys() {
		assert.Equal(t, d.String(), deps[i])
	}
}
