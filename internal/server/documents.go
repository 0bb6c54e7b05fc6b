package server

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/parser"
)

// handleDocumentsUpload handles POST /api/documents. It accepts a multipart
// form with one or more "files" parts and stores each supported file in the
// upload directory. Unsupported extensions are reported back, not stored.
// The next chat turn picks the new files up automatically.
func (s *Server) handleDocumentsUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "no files in request", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		log.Error("creating upload directory failed", slog.Any("error", err))
		http.Error(w, "could not store documents", http.StatusInternalServerError)
		return
	}

	var resp uploadResponse
	for _, fh := range files {
		name := sanitizeFilename(fh.Filename)
		if name == "" {
			resp.Skipped = append(resp.Skipped, fmt.Sprintf("%s: invalid file name", fh.Filename))
			s.metrics.documentUploadsTotal.WithLabelValues("rejected").Inc()
			continue
		}
		if !parser.Supported(filepath.Ext(name)) {
			resp.Skipped = append(resp.Skipped, fmt.Sprintf("%s: unsupported file type", name))
			s.metrics.documentUploadsTotal.WithLabelValues("rejected").Inc()
			continue
		}

		if err := saveUpload(fh, filepath.Join(s.cfg.UploadDir, name)); err != nil {
			log.Error("storing upload failed", slog.String("file", name), slog.Any("error", err))
			resp.Skipped = append(resp.Skipped, fmt.Sprintf("%s: storage failed", name))
			s.metrics.documentUploadsTotal.WithLabelValues("rejected").Inc()
			continue
		}

		resp.Saved = append(resp.Saved, name)
		s.metrics.documentUploadsTotal.WithLabelValues("saved").Inc()
		log.Info("document stored", slog.String("file", name), slog.Int64("bytes", fh.Size))
	}

	status := http.StatusOK
	if len(resp.Saved) == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// handleDocumentsList handles GET /api/documents. It lists the files in the
// upload directory, newest-first. A missing directory is an empty list.
func (s *Server) handleDocumentsList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, documentsResponse{Documents: []documentInfo{}})
			return
		}
		logging.FromContext(r.Context()).Error("listing documents failed", slog.Any("error", err))
		http.Error(w, "could not list documents", http.StatusInternalServerError)
		return
	}

	docs := make([]documentInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, documentInfo{
			Name:       e.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ModifiedAt > docs[j].ModifiedAt })

	writeJSON(w, http.StatusOK, documentsResponse{
		HasDocuments: len(docs) > 0,
		Documents:    docs,
	})
}

// saveUpload copies one multipart file part to dst.
func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open part: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

// sanitizeFilename strips any path component from a client-supplied file name
// so uploads can never escape the upload directory. Returns "" for names that
// have no usable base.
func sanitizeFilename(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		return ""
	}
	return base
}
