package document

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ellery/scribe/internal/fileio"
)

var extraTypes = map[string]string{
	".go":   "text/x-go",
	".c":    "text/x-csrc",
	".h":    "text/x-chdr",
	".py":   "text/x-python",
	".rs":   "text/rust",
	".sh":   "application/x-shellscript",
	".md":   "text/markdown",
	".json": "application/json",
	".yaml": "application/x-yaml",
	".yml":  "application/x-yaml",
	".toml": "application/toml",
	".lua":  "text/x-lua",
}

var descriptions = map[string]string{
	"text/plain":                "plain text document",
	"text/x-go":                 "Go source code",
	"text/x-csrc":               "C source code",
	"text/x-chdr":               "C header",
	"text/x-python":             "Python script",
	"text/rust":                 "Rust source code",
	"application/x-shellscript": "shell script",
	"text/markdown":             "Markdown document",
	"application/json":          "JSON document",
	"application/x-yaml":        "YAML document",
	"application/toml":          "TOML document",
	"text/x-lua":                "Lua script",
	"text/html":                 "HTML document",
	"text/xml":                  "XML document",
	"application/xml":           "XML document",
	"text/css":                  "CSS stylesheet",
	"text/javascript":           "JavaScript program",
}

// sniffMime guesses from the extension first, then from the content
func sniffMime(location, text string) string {
	if location != "" {
		ext := strings.ToLower(filepath.Ext(fileio.LocalPath(location)))
		if t, ok := extraTypes[ext]; ok {
			return t
		}
		if t := mime.TypeByExtension(ext); t != "" {
			if mt, _, err := mime.ParseMediaType(t); err == nil {
				return mt
			}
		}
	}
	if text == "" {
		return "text/plain"
	}
	sample := text
	if len(sample) > 512 {
		sample = sample[:512]
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType([]byte(sample)))
	if err != nil {
		return "text/plain"
	}
	return mt
}

func describeMime(mt string) string {
	if d, ok := descriptions[mt]; ok {
		return d
	}
	if strings.HasPrefix(mt, "text/") {
		return "plain text document"
	}
	return mt
}
