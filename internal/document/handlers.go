package document

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	maxFormSize = int64(50 << 20) // 50MB
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Write(data)
}

// filterFromQuery reads the client and type query parameters
func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{Client: q.Get("client")}
	if t := q.Get("type"); t != "" {
		if ClassifyType(t) != Type(t) {
			return Filter{}, fmt.Errorf("unknown document type %q", t)
		}
		filter.Type = Type(t)
	}
	return filter, nil
}

// contentTypeFor resolves the MIME type of an uploaded part
func contentTypeFor(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".webp":
			contentType = "image/webp"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleUploadDocuments extracts every "file" part of a multipart form, in order
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if strings.Contains(err.Error(), "request body too large") {
			errorMsg = "Upload is too large. Maximum size is 50MB."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		jsonError(w, "No file was selected. Please choose at least one file to upload.", http.StatusBadRequest)
		return
	}

	uploads := make([]Upload, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			slog.Error("Error reading file data", "error", err, "filename", header.Filename)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, Upload{
			Filename:    header.Filename,
			Data:        data,
			ContentType: contentTypeFor(header),
		})
	}

	report := s.service.ProcessBatch(uploads)
	code := http.StatusCreated
	if report.Succeeded() == 0 {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, report)
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleListDocuments returns the documents matching the query filter
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Documents(filter))
}

// handleGetDocument returns a single document
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Document(r.PathValue("id"))
	if err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleExportDocument returns the workbook of a single document
func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Document(r.PathValue("id"))
	if err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	data, err := s.service.ExportSingle(doc)
	if err != nil {
		slog.Error("Error exporting document", "id", doc.ID, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeWorkbook(w, SingleExportFilename(doc), data)
}

// handleExport returns the organized workbook, optionally filtered
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := s.service.ExportFiltered(filter)
	if err != nil {
		slog.Error("Error exporting workbook", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeWorkbook(w, FilteredExportFilename(filter, s.service.Now()), data)
}

// handleClearDocuments resets the session history
func (s *Server) handleClearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearHistory(); err != nil {
		slog.Error("Error clearing history", "error", err)
		corsError(w, "Error clearing history", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns the dashboard summary
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Stats())
}
