// Package web embeds the browser chat page.
package web

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

//go:embed static/index.html
var chatPage []byte

// built stands in for the page's modification time so clients can revalidate.
var built = time.Now()

// Handler serves the chat page for GET and HEAD regardless of the path it is
// mounted on. Other methods get 405.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, "index.html", built, bytes.NewReader(chatPage))
	})
}
