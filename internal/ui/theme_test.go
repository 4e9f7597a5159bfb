package ui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"

	"roomsync/internal/utils"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  tcell.Color
		ok    bool
	}{
		{"hex", "#ff0000", tcell.NewRGBColor(255, 0, 0), true},
		{"short hex", "#0f0", tcell.NewRGBColor(0, 255, 0), true},
		{"rgb func", "rgb(1, 2, 3)", tcell.NewRGBColor(1, 2, 3), true},
		{"named", "Red", tcell.ColorRed, true},
		{"map", map[string]any{"r": 10, "g": 20, "b": 30}, tcell.NewRGBColor(10, 20, 30), true},
		{"palette", 4, tcell.PaletteColor(4), true},
		{"bad hex", "#12345", 0, false},
		{"rgb out of range", "rgb(1, 2, 300)", 0, false},
		{"map missing b", map[string]any{"r": 1, "g": 2}, 0, false},
		{"unknown name", "blurple", 0, false},
		{"float", 1.5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseColor(tt.value)
			if !tt.ok {
				require.Error(t, err)
				require.Equal(t, utils.KindTheme, utils.KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultTheme(t *testing.T) {
	th := DefaultTheme()
	require.Equal(t, "default", th.Name)
	require.True(t, th.HasColor("primary"))
	require.Equal(t, "[#89b4fa]", th.Tag("primary"))
	require.Equal(t, tcell.ColorWhite, th.GetColor("nope"))
	require.Contains(t, th.ListColors(), "background")
}

func TestLoadThemeFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.yml"), []byte(`
name: paper
colors:
  background: white
  primary: "#000"
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("colors: [oops"), 0o600))

	th, err := LoadThemeFromDir(dir, "paper")
	require.NoError(t, err)
	require.Equal(t, "paper", th.Name)
	require.Equal(t, tcell.NewRGBColor(0, 0, 0), th.GetColor("primary"))

	th, err = LoadThemeFromDir(dir, "missing")
	require.NoError(t, err)
	require.Equal(t, "default", th.Name)

	_, err = LoadThemeFromDir(dir, "broken")
	require.Equal(t, utils.KindTheme, utils.KindOf(err))

	_, err = LoadTheme(filepath.Join(dir, "paper.txt"))
	require.Equal(t, utils.KindTheme, utils.KindOf(err))
}

func TestShippedThemeParses(t *testing.T) {
	th, err := LoadThemeFromDir(filepath.Join("..", "..", "themes"), "default")
	require.NoError(t, err)
	require.Equal(t, DefaultTheme().ListColors(), th.ListColors())
}
