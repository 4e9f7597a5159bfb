package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"

	"roomsync/internal/utils"
)

// ThemeConfig is a theme as written in YAML.
type ThemeConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Author      string         `yaml:"author"`
	Version     string         `yaml:"version"`
	Colors      map[string]any `yaml:"colors"`
}

// Theme is a ThemeConfig with its colors resolved.
type Theme struct {
	Name        string
	Description string
	Author      string
	Version     string
	colors      map[string]tcell.Color
}

const defaultThemeYAML = `
name: default
description: dark room theme
colors:
  background: "#1e1e2e"
  background-light: "#313244"
  modal-background: "#181825"
  foreground: "#cdd6f4"
  foreground-dark: "#6c7086"
  primary: "#89b4fa"
  accent: "#f5c2e7"
  border: "#45475a"
  border-focus: "#89b4fa"
  input-field: "#313244"
  button-active: "#89b4fa"
  button-text: "#1e1e2e"
  red: "#f38ba8"
  green: "#a6e3a1"
  yellow: "#f9e2af"
`

// DefaultTheme is the built-in theme used when no theme file is found.
func DefaultTheme() *Theme {
	t, err := ParseTheme([]byte(defaultThemeYAML))
	if err != nil {
		panic("built-in theme: " + err.Error())
	}
	return t
}

func LoadTheme(themePath string) (*Theme, error) {
	if !utils.IsYAMLFile(themePath) {
		return nil, utils.ThemeError(fmt.Sprintf("theme file must be .yaml or .yml: %s", themePath))
	}
	data, err := os.ReadFile(themePath)
	if err != nil {
		return nil, utils.ThemeError(fmt.Sprintf("failed to read theme file: %v", err))
	}
	return ParseTheme(data)
}

// ParseTheme decodes a YAML theme document.
func ParseTheme(data []byte) (*Theme, error) {
	var config ThemeConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, utils.ThemeError(fmt.Sprintf("failed to parse theme YAML: %v", err))
	}

	theme := &Theme{
		Name:        config.Name,
		Description: config.Description,
		Author:      config.Author,
		Version:     config.Version,
		colors:      make(map[string]tcell.Color, len(config.Colors)),
	}
	for key, value := range config.Colors {
		color, err := parseColor(value)
		if err != nil {
			return nil, utils.ThemeError(fmt.Sprintf("failed to parse color '%s': %v", key, err))
		}
		theme.colors[key] = color
	}
	return theme, nil
}

// LoadThemeFromDir looks for name.yaml then name.yml in dir. An empty dir or
// a missing file yields the built-in theme; a file that exists but does not
// parse is an error.
func LoadThemeFromDir(dir, name string) (*Theme, error) {
	if dir == "" || name == "" {
		return DefaultTheme(), nil
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadTheme(path)
	}
	return DefaultTheme(), nil
}

// GetColor returns a color by name, white when the theme lacks it.
func (t *Theme) GetColor(name string) tcell.Color {
	return t.GetColorWithFallback(name, tcell.ColorWhite)
}

func (t *Theme) GetColorWithFallback(name string, fallback tcell.Color) tcell.Color {
	if color, exists := t.colors[name]; exists {
		return color
	}
	return fallback
}

func (t *Theme) HasColor(name string) bool {
	_, exists := t.colors[name]
	return exists
}

func (t *Theme) ListColors() []string {
	keys := make([]string, 0, len(t.colors))
	for key := range t.colors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Tag renders a color as a tview color tag, e.g. "[#89b4fa]".
func (t *Theme) Tag(name string) string {
	return fmt.Sprintf("[#%06x]", t.GetColor(name).Hex())
}

func parseColor(value any) (tcell.Color, error) {
	switch v := value.(type) {
	case string:
		return parseColorString(v)
	case int:
		return tcell.PaletteColor(v), nil
	case map[string]any:
		return parseColorMap(v)
	default:
		return tcell.ColorWhite, utils.ThemeError(fmt.Sprintf("unsupported color format: %T", value))
	}
}

func parseColorString(colorStr string) (tcell.Color, error) {
	colorStr = strings.TrimSpace(colorStr)
	switch {
	case strings.HasPrefix(colorStr, "#"):
		return parseHexColor(colorStr)
	case strings.HasPrefix(colorStr, "rgb(") && strings.HasSuffix(colorStr, ")"):
		return parseRGBFunction(colorStr)
	}
	if c := tcell.GetColor(strings.ToLower(colorStr)); c != tcell.ColorDefault {
		return c, nil
	}
	return tcell.ColorWhite, utils.ThemeError(fmt.Sprintf("unknown color name: %s", colorStr))
}

// parseHexColor accepts #RGB and #RRGGBB.
func parseHexColor(hex string) (tcell.Color, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return tcell.ColorWhite, utils.ThemeError(fmt.Sprintf("invalid hex color format: #%s", hex))
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tcell.ColorWhite, utils.ThemeError(fmt.Sprintf("invalid hex color: #%s", hex))
	}
	return tcell.NewHexColor(int32(v)), nil
}

// parseRGBFunction parses rgb(255, 255, 255).
func parseRGBFunction(rgbStr string) (tcell.Color, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(rgbStr, "rgb("), ")")
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return tcell.ColorWhite, utils.ThemeError(fmt.Sprintf("invalid RGB format: %s", rgbStr))
	}
	var rgb [3]int32
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return tcell.ColorWhite, utils.ThemeError(fmt.Sprintf("invalid RGB component %q", p))
		}
		rgb[i] = int32(n)
	}
	return tcell.NewRGBColor(rgb[0], rgb[1], rgb[2]), nil
}

func parseColorMap(colorMap map[string]any) (tcell.Color, error) {
	var rgb [3]int32
	for i, key := range []string{"r", "g", "b"} {
		v, ok := colorMap[key].(int)
		if !ok {
			return tcell.ColorWhite, utils.ThemeError(fmt.Sprintf("color map needs an integer %q", key))
		}
		rgb[i] = int32(v)
	}
	return tcell.NewRGBColor(rgb[0], rgb[1], rgb[2]), nil
}

func (t *Theme) FormColors() (bg, fieldBg, buttonBg, buttonText, fieldText tcell.Color) {
	return t.GetColor("background"),
		t.GetColor("input-field"),
		t.GetColor("button-active"),
		t.GetColor("button-text"),
		t.GetColor("foreground")
}

func (t *Theme) ModalColors() (bg, text, border tcell.Color) {
	return t.GetColor("modal-background"),
		t.GetColor("foreground"),
		t.GetColor("border")
}
