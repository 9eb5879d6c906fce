// Package handlers exposes the services over HTTP.
package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/internal/services"
	jwtutil "github.com/dxsocial/backend/pkg/jwt"
	"github.com/dxsocial/backend/pkg/middleware"
	"github.com/sirupsen/logrus"
)

const maxUploadFiles = 10

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// writeError maps err to a status and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.Status(err) == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("Request failed")
	}
	apperr.Write(w, err)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "Invalid request payload")
	}
	return nil
}

// currentUser returns the authenticated claims or writes 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*jwtutil.Claims, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		apperr.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return claims, true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

// pageFromRequest reads page and limit, clamped by models.NewPage.
func pageFromRequest(r *http.Request) models.Page {
	return models.NewPage(queryInt(r, "page", 1), queryInt(r, "limit", models.DefaultPageLimit))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseMultipart parses the form, keeping up to maxSize bytes in memory.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxSize int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize*maxUploadFiles+1<<20)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return apperr.New(apperr.ErrInvalidInput, "Invalid multipart form")
	}
	return nil
}

// formValue returns the field and whether it was sent at all.
func formValue(r *http.Request, key string) (string, bool) {
	vals, ok := r.MultipartForm.Value[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// uploads opens every file sent under field. The returned closer releases them.
func uploads(r *http.Request, field string, maxSize int64) ([]services.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	headers := r.MultipartForm.File[field]
	if len(headers) > maxUploadFiles {
		return nil, closeAll, apperr.Newf(apperr.ErrInvalidInput, "At most %d files are allowed", maxUploadFiles)
	}

	files := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxSize {
			closeAll()
			return nil, func() {}, apperr.Newf(apperr.ErrInvalidInput, "File %s exceeds the size limit", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperr.New(apperr.ErrInvalidInput, "Failed to read uploaded file")
		}
		opened = append(opened, f)
		files = append(files, services.Upload{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     f,
		})
	}
	return files, closeAll, nil
}

// singleUpload returns the first file under field, or nil.
func singleUpload(r *http.Request, field string, maxSize int64) (*services.Upload, func(), error) {
	files, closer, err := uploads(r, field, maxSize)
	if err != nil || len(files) == 0 {
		return nil, closer, err
	}
	return &files[0], closer, nil
}

// NotFoundHandler answers unknown routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	apperr.WriteError(w, http.StatusNotFound, "Not found")
}

var errInvalidAddress = apperr.New(apperr.ErrInvalidInput, "Invalid wallet address")
