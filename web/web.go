// Package web serves the embedded front-end build.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed all:build
var embedded embed.FS

// Build returns the front-end files rooted at the build directory.
func Build() fs.FS {
	sub, err := fs.Sub(embedded, "build")
	if err != nil {
		panic(err)
	}
	return sub
}

// Without hides dir and everything below it from fsys.
func Without(fsys fs.FS, dir string) fs.FS {
	return hiddenFS{FS: fsys, dir: strings.Trim(dir, "/")}
}

type hiddenFS struct {
	fs.FS
	dir string
}

func (h hiddenFS) Open(name string) (fs.File, error) {
	if name == h.dir || strings.HasPrefix(name, h.dir+"/") {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return h.FS.Open(name)
}

// SPA serves files from fsys when the cleaned path looks like a file (has an
// extension) and falls back to index for client-side routes.
func SPA(fsys fs.FS, index string) echo.HandlerFunc {
	fileServer := http.FileServer(http.FS(fsys))
	return func(c echo.Context) error {
		req := c.Request()
		cleaned := path.Clean("/" + req.URL.Path)
		if path.Ext(cleaned) != "" {
			r := req.Clone(req.Context())
			r.URL.Path = cleaned
			r.URL.RawPath = ""
			fileServer.ServeHTTP(c.Response(), r)
			return nil
		}

		f, err := fsys.Open(index)
		if err != nil {
			return c.NoContent(http.StatusNotFound)
		}
		defer f.Close()

		return c.Stream(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, f)
	}
}
