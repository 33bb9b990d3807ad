package view

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-contrib/static"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

type embedFileSystem struct {
	http.FileSystem
}

// Exists reports whether path, under prefix, is an embedded asset.
func (e embedFileSystem) Exists(prefix string, path string) bool {
	name := strings.TrimPrefix(path, prefix)
	if name == path && prefix != "" && prefix != "/" {
		return false
	}
	f, err := e.Open(name)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// Assets serves the embedded static files for static.Serve.
func Assets() static.ServeFileSystem {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return embedFileSystem{FileSystem: http.FS(sub)}
}
