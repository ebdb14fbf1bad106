package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obriencj/koji-habitude-go/pkg/model"
)

type recordingSink struct {
	docs []model.Document
}

func (s *recordingSink) Feed(d model.Document) error {
	s.docs = append(s.docs, d)
	return nil
}

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileParsesMultiDocumentStream(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "tags.yaml", "type: tag\nname: f40-build\narches: x86_64\n---\ntype: tag\nname: f40-extra\n")

	sink := &recordingSink{}
	require.NoError(t, LoadFile(path, sink))

	require.Len(t, sink.docs, 2)
	assert.Equal(t, "tag", sink.docs[0].Type)
	assert.Equal(t, "f40-build", sink.docs[0].Name)
	assert.Equal(t, "x86_64", sink.docs[0].Fields["arches"])
	assert.Equal(t, path, sink.docs[0].File)
	assert.Equal(t, "f40-extra", sink.docs[1].Name)
}

func TestLoadFileStripsReservedFieldsFromFields(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "tag.yaml", "type: tag\nname: f40-build\n__file__: bogus\n__line__: 99\n")

	sink := &recordingSink{}
	require.NoError(t, LoadFile(path, sink))

	require.Len(t, sink.docs, 1)
	_, hasFile := sink.docs[0].Fields["__file__"]
	_, hasLine := sink.docs[0].Fields["__line__"]
	assert.False(t, hasFile)
	assert.False(t, hasLine)
}

func TestLoadFileRejectsDocumentWithoutType(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "bad.yaml", "name: f40-build\n")

	sink := &recordingSink{}
	err := LoadFile(path, sink)
	require.Error(t, err)
}

func TestLoadFileTrimsNameWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "tag.yaml", "type: tag\nname: \"  f40-build  \"\n")

	sink := &recordingSink{}
	require.NoError(t, LoadFile(path, sink))
	assert.Equal(t, "f40-build", sink.docs[0].Name)
}

func TestLoadFileSkipsEmptyTrailingDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "tag.yaml", "type: tag\nname: f40-build\n---\n")

	sink := &recordingSink{}
	require.NoError(t, LoadFile(path, sink))
	assert.Len(t, sink.docs, 1)
}

func TestLoadPathWalksDirectoryInLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "b.yaml", "type: tag\nname: second\n")
	writeYAML(t, dir, "a.yaml", "type: tag\nname: first\n")
	writeYAML(t, dir, "notes.txt", "not yaml, ignored by extension")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeYAML(t, sub, "c.yml", "type: tag\nname: third\n")

	sink := &recordingSink{}
	require.NoError(t, LoadPath(dir, sink))

	require.Len(t, sink.docs, 3)
	assert.Equal(t, "first", sink.docs[0].Name)
	assert.Equal(t, "second", sink.docs[1].Name)
	assert.Equal(t, "third", sink.docs[2].Name)
}

func TestLoadPathOnSingleFileDelegatesToLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "tag.yaml", "type: tag\nname: f40-build\n")

	sink := &recordingSink{}
	require.NoError(t, LoadPath(path, sink))
	assert.Len(t, sink.docs, 1)
}

func TestLoadPathMissingPathErrors(t *testing.T) {
	sink := &recordingSink{}
	err := LoadPath(filepath.Join(t.TempDir(), "missing"), sink)
	assert.Error(t, err)
}

func TestLoadFileRecordsDocumentLineNumber(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "tag.yaml", "\n\ntype: tag\nname: f40-build\n")

	sink := &recordingSink{}
	require.NoError(t, LoadFile(path, sink))
	assert.Equal(t, 3, sink.docs[0].Line)
}
