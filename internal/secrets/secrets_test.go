// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingDirectory(t *testing.T) {
	secrets, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, secrets)
}

func TestLoad_ReadsTrimmedValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "joplin-token"), []byte("  abc123\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openlibrary-email"), []byte("me@example.org"), 0o600))

	secrets, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc123", secrets["joplin-token"])
	assert.Equal(t, "me@example.org", secrets["openlibrary-email"])
}

func TestLoad_SkipsEmptyHiddenAndDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("  \n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	secrets, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, secrets)
}

func TestValue_OverrideWins(t *testing.T) {
	m := map[string]string{"joplin-token": "from-file"}
	assert.Equal(t, "from-config", Value(m, "joplin-token", "from-config"))
	assert.Equal(t, "from-file", Value(m, "joplin-token", ""))
	assert.Equal(t, "", Value(m, "missing", ""))
}
