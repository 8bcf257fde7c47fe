// Package dashboard serves the embedded status page.
package dashboard

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed assets
var assets embed.FS

// Handler returns an HTTP handler that serves the embedded dashboard assets.
// index.html is served at /, style.css and app.js at their paths.
func Handler() http.Handler {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// "assets" is embedded, so Sub cannot fail.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
