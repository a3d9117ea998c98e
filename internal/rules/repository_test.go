package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestRepository_LoadsCommonAndCategory(t *testing.T) {
	root := t.TempDir()
	writeRuleFile(t, filepath.Join(root, "india", "common"), "base.json",
		`[{"id":"c1","regulation":"DCA","title":"No unverified health claims"}]`)
	writeRuleFile(t, filepath.Join(root, "india", "health"), "health.json",
		`[{"id":"h1","regulation":"ASCI","section":"1.2","title":"Substantiate efficacy claims"}]`)

	repo := New(root)
	got, err := repo.Get("India", "", "health")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRepository_MissingDirectoryIsEmptyNotError(t *testing.T) {
	root := t.TempDir()
	repo := New(root)
	got, err := repo.Get("India", "", "finance")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepository_GCCRegionLevel(t *testing.T) {
	root := t.TempDir()
	writeRuleFile(t, filepath.Join(root, "gcc", "uae", "common"), "base.json",
		`[{"id":"g1","regulation":"UAE-CP","title":"Arabic disclosure required"}]`)

	repo := New(root)
	got, err := repo.Get("GCC", "UAE", "health")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "g1", got[0].ID)
}

func TestRepository_CachesResults(t *testing.T) {
	root := t.TempDir()
	writeRuleFile(t, filepath.Join(root, "india", "common"), "base.json",
		`[{"id":"c1","regulation":"DCA","title":"x"}]`)

	repo := New(root)
	first, err := repo.Get("India", "", "health")
	require.NoError(t, err)

	// Mutate on disk; cached result should not change until invalidated.
	writeRuleFile(t, filepath.Join(root, "india", "common"), "extra.json",
		`[{"id":"c2","regulation":"DCA","title":"y"}]`)

	second, err := repo.Get("India", "", "health")
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))

	repo.Invalidate()
	third, err := repo.Get("India", "", "health")
	require.NoError(t, err)
	assert.Len(t, third, 2)
}
