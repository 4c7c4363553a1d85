package api

import (
	"io"
	"net/http"
)

// NotFoundHandler answers unknown routes with a JSON body
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, `{"message":"Route not found"}`)
}
