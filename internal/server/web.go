package server

import (
	_ "embed"
	"errors"
	"net/http"
	"strings"
)

//go:embed index.html
var indexPage string

// tokenPlaceholder is replaced with the per-run session token when the page
// is served. The page is only reachable over loopback.
const tokenPlaceholder = "__SESSION_TOKEN__"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	page := strings.Replace(indexPage, tokenPlaceholder, s.token.Value(), 1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(page))
}
