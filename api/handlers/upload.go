package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/storage"
)

// Files serves stored case documents
type Files struct {
	Storage storage.Provider
}

// PreviewHandler streams a document for display in the browser
func (f Files) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	f.serve(w, r, "inline")
}

// DownloadHandler streams a document as an attachment
func (f Files) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	f.serve(w, r, "attachment")
}

func (f Files) serve(w http.ResponseWriter, r *http.Request, disposition string) {
	name := mux.Vars(r)["filename"]
	if name != storage.SafeName(name) {
		config.ErrorStatus("invalid file name", http.StatusBadRequest, w, fmt.Errorf("rejected file name %q", name))
		return
	}

	body, contentType, err := f.Storage.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			config.ErrorStatus("File not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to open file", http.StatusInternalServerError, w, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = storage.ContentType(name)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, name))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
