package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request bodies larger than this are cut off mid-read.
const maxUploadBytes = 20 << 20

// handleVision accepts a multipart image upload and routes it, with the
// prompt, to a vision-capable head. The image lands in a temp file only for
// the duration of the request.
func (s *Server) handleVision(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	model := r.FormValue("model")
	prompt := r.FormValue("prompt")
	if prompt == "" {
		prompt = "Describe this image."
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image file is required"})
		return
	}
	defer file.Close()

	headName := s.resolveHead(model)
	if headName == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no heads available"})
		return
	}

	imagePath, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.log.Error("vision upload failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not store upload"})
		return
	}
	defer os.Remove(imagePath)

	text, err := s.gw.Process(r.Context(), headName, prompt, imagePath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"model":    headName,
		"response": text,
	})
}

// saveUpload writes the upload to a uniquely named temp file, preserving the
// original extension so media-type sniffing downstream stays accurate.
func (s *Server) saveUpload(file io.Reader, original string) (string, error) {
	ext := filepath.Ext(original)
	if ext == "" {
		ext = ".png"
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("hydra-vision-%s%s", uuid.NewString(), ext))

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
