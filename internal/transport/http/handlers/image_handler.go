package handlers

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/Sumit771/1-2-1/internal/chat"
	"github.com/Sumit771/1-2-1/internal/media"
	"github.com/Sumit771/1-2-1/pkg/log"
)

const multipartOverhead = 64 << 10

type ImageHandler struct {
	processor *media.Processor
	tracker   *chat.ImageTracker
	ttl       time.Duration
	maxSize   int64
}

func NewImageHandler(processor *media.Processor, tracker *chat.ImageTracker, ttl time.Duration, maxSize int64) *ImageHandler {
	return &ImageHandler{processor: processor, tracker: tracker, ttl: ttl, maxSize: maxSize}
}

// Upload accepts a multipart "image" field, stores the processed image and
// tracks it for expiry.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "No image file provided")
		return
	}
	defer file.Close()

	upload, err := h.processor.Process(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, r, "upload image", err)
		return
	}

	h.tracker.Track(upload.Ref, time.Now().Add(h.ttl))

	l := log.Ctx(r.Context())
	l.Info().Str("image", upload.Ref).Msg("image uploaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Image uploaded successfully",
		"imageUrl": upload.Ref,
		"filename": upload.Filename,
	})
}

func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if _, ok := media.FilenameFromRef(media.RoutePrefix + name); !ok {
		writeError(w, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	}

	f, err := h.processor.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, media.ErrInvalidName) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Image not found")
			return
		}
		writeServiceError(w, r, "serve image", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeServiceError(w, r, "serve image", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
