// Package site serves the embedded screener front end.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded site at / to mux. More specific routes
// registered on the same mux take precedence.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("GET /", files)
}
