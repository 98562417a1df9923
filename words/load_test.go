package words

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendrascience/fastgen/internal/logger"
	"github.com/dendrascience/fastgen/util"
)

func TestBuiltin(t *testing.T) {
	lists := Builtin()
	for _, c := range Categories {
		assert.NotEmpty(t, lists[c], c)
		assert.NotContains(t, lists[c], fallbackWord, c)
	}
}

func TestLoadLists(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/words", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/words/primary.txt", []byte("Alpha\n\n  beta  \nalpha\nGamma Ray\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/words/secondary.txt", []byte("\n   \n"), 0o644))
	// technical.txt intentionally absent

	lists, err := LoadLists(fsys, "/words", logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "gamma-ray"}, lists[Primary])
	assert.Equal(t, []string{fallbackWord}, lists[Secondary])
	assert.Equal(t, []string{fallbackWord}, lists[Technical])
}

func TestLoadListsMissingDir(t *testing.T) {
	_, err := LoadLists(afero.NewMemMapFs(), "/nope", nil)
	assert.ErrorIs(t, err, util.ErrMissingWordLists)
}

func TestLoadListsNotADir(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/file", []byte("x"), 0o644))
	_, err := LoadLists(fsys, "/file", nil)
	assert.ErrorIs(t, err, util.ErrExpectedDirectory)
}
