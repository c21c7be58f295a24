package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetColorFallsBackToDefStyleForUnknownRole(t *testing.T) {
	Colorscheme = defaultColorscheme()
	assert.Equal(t, DefStyle, GetColor(Role("nonexistent")))
}

func TestGetColorReturnsConfiguredRole(t *testing.T) {
	Colorscheme = defaultColorscheme()
	fg, _, _ := GetColor(RoleVerdictAllow).Decompose()
	assert.NotEqual(t, 0, fg)
}

func TestInitColorschemeMissingFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	err := InitColorscheme(filepath.Join(dir, "colorscheme.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultColorscheme()[RoleVerdictDeny], Colorscheme[RoleVerdictDeny])
}

func TestInitColorschemeAppliesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "colorscheme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verdict_deny: \"#ff0000\"\n"), 0o644))

	require.NoError(t, InitColorscheme(path))
	fg, _, _ := Colorscheme[RoleVerdictDeny].Decompose()
	assert.NotEqual(t, 0, fg)
}

func TestInitColorschemeMalformedFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "colorscheme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid\n"), 0o644))

	err := InitColorscheme(path)
	assert.Error(t, err)
}
