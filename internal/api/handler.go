package api

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/service"
	"github.com/rs/zerolog/log"
)

// DefaultMaxUploadMemory is how much of a multipart upload is kept in memory
// before spilling to temporary files.
const DefaultMaxUploadMemory = 32 << 20

// MaxUploadFiles is how many images of the maximum size one upload request
// may carry.
const MaxUploadFiles = 10

const multipartOverhead = 1 << 20

// UploadBodyLimit is the request body cap for an upload whose files may each
// be up to maxFileSize bytes.
func UploadBodyLimit(maxFileSize int64) int64 {
	if maxFileSize <= 0 {
		return 0
	}
	return maxFileSize*MaxUploadFiles + multipartOverhead
}

type Handler struct {
	svc     *service.Service
	images  images.Store
	maxBody int64
}

// NewHandler builds the API handler. Upload bodies larger than maxBody bytes
// are refused; zero means no cap.
func NewHandler(svc *service.Service, store images.Store, maxBody int64) *Handler {
	return &Handler{svc: svc, images: store, maxBody: maxBody}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Image serves a stored upload.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	data, err := h.images.Read(chi.URLParam(r, "key"))
	if err != nil {
		if !errors.Is(err, images.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to read image")
		}
		writeErrorMessage(w, http.StatusNotFound, "Bild nicht gefunden")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "Ungültige Buch-ID")
		return 0, false
	}
	return id, true
}

type analysisResponse struct {
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Book    bookResponse `json:"book"`
}

// writeAnalysis answers with the analyzed book; a failed analysis is a 502.
func writeAnalysis(w http.ResponseWriter, okStatus int, rec *book.Record) {
	if rec.ProcessingStatus == book.StatusError {
		writeJSON(w, http.StatusBadGateway, analysisResponse{Error: rec.ProcessingError, Book: newBookResponse(rec)})
		return
	}
	writeJSON(w, okStatus, analysisResponse{Message: "Buch erfolgreich analysiert und gespeichert", Book: newBookResponse(rec)})
}

// Upload handles POST /books: multipart "images" files plus a "weight" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := r.ParseMultipartForm(DefaultMaxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn().Int64("limit", tooLarge.Limit).Msg("upload body too large")
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "Upload zu groß")
			return
		}
		writeErrorMessage(w, http.StatusBadRequest, "Keine Bilder hochgeladen")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(files)
			writeErrorMessage(w, http.StatusBadRequest, "Datei konnte nicht gelesen werden: "+fh.Filename)
			return
		}
		files = append(files, service.UploadFile{Name: fh.Filename, Size: fh.Size, Content: f})
	}
	defer closeAll(files)

	rec, err := h.svc.Upload(r.Context(), service.UploadInput{Files: files, Weight: r.FormValue("weight")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAnalysis(w, http.StatusCreated, rec)
}

func closeAll(files []service.UploadFile) {
	for _, f := range files {
		if c, ok := f.Content.(multipart.File); ok {
			c.Close()
		}
	}
}

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]bookResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newBookResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookResponse(rec))
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	var in service.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Ungültige JSON-Daten")
		return
	}
	rec, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookResponse(rec))
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Buch erfolgreich gelöscht"})
}

// Reanalyze handles POST /books/{id}/reanalyze. With ?cached=1 a fresh
// cached result is used instead of calling the model.
func (h *Handler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	useCache, _ := strconv.ParseBool(r.URL.Query().Get("cached"))
	rec, err := h.svc.Reanalyze(r.Context(), id, useCache)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAnalysis(w, http.StatusOK, rec)
}

func (h *Handler) Shipping(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ship := newShippingResponse(rec)
	writeJSON(w, http.StatusOK, map[string]any{
		"shipping":    ship,
		"total_price": shippingTotal(rec.Price, ship),
	})
}
