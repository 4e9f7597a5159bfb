package utils

import (
	"net/url"
	"path"
	"strings"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

func IsYAMLFile(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

// IsImageURL reports whether text is exactly an http(s) URL pointing at an
// image file. The view shows these as links instead of plain text.
func IsImageURL(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || t != text {
		return false
	}
	u, err := url.Parse(t)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
