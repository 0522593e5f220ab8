package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ykurilov/banana-editor/internal/formdata"
	"github.com/ykurilov/banana-editor/internal/providers/image"
	"github.com/ykurilov/banana-editor/internal/session"
	"github.com/ykurilov/banana-editor/pkg/zip"
)

// Upload handles POST /api/upload: store the request's image parts under a
// session, creating the session when no id was supplied.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.Cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		a.error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	form, err := formdata.Decode(r.Header.Get("Content-Type"), body)
	if err != nil {
		a.error(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	if len(form.Files) == 0 {
		a.error(w, http.StatusBadRequest, "no image files in request")
		return
	}

	id := strings.TrimSpace(form.Fields["sessionId"])
	if id == "" {
		id = a.Store.NewID()
	}

	files := make([]map[string]any, 0, len(form.Files))
	for _, f := range form.Files {
		stored, err := a.Store.Save(id, f.Filename, image.CoerceMimeType(f.MimeType), f.Data)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				a.error(w, http.StatusBadRequest, "invalid session id")
				return
			}
			a.Log.Error().Err(err).Str("session", id).Msg("upload: store file failed")
			a.error(w, http.StatusInternalServerError, "failed to store file")
			return
		}
		files = append(files, map[string]any{
			"originalName": f.Filename,
			"savedName":    stored.Name,
			"mimeType":     stored.MimeType,
			"size":         stored.Size,
		})
	}

	a.json(w, http.StatusOK, map[string]any{
		"sessionId": id,
		"files":     files,
		"message":   fmt.Sprintf("saved %d file(s)", len(files)),
	})
}

// SessionList handles GET /api/session/{id}.
func (a *App) SessionList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	files, err := a.Store.List(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			a.error(w, http.StatusNotFound, "session not found")
			return
		}
		a.Log.Error().Err(err).Str("session", id).Msg("session: list failed")
		a.error(w, http.StatusInternalServerError, "failed to list session")
		return
	}

	out := make([]map[string]any, 0, len(files))
	for _, f := range files {
		out = append(out, map[string]any{
			"name":     f.Name,
			"mimeType": f.MimeType,
			"size":     f.Size,
			"url":      fmt.Sprintf("/api/session/%s/file/%s", id, f.Name),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"sessionId": id, "files": out})
}

// SessionFile handles GET /api/session/{id}/file/{name}: stream the stored
// bytes back with the inferred content type.
func (a *App) SessionFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	full, mimeType, err := a.Store.FilePath(id, name)
	if err != nil {
		a.error(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	http.ServeFile(w, r, full)
}

// SessionFileDelete handles DELETE /api/session/{id}/file/{name}.
func (a *App) SessionFileDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	if err := a.Store.Delete(id, name); err != nil {
		a.error(w, http.StatusNotFound, "file not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true, "deleted": name})
}

// SessionArchive handles GET /api/session/{id}/archive: download the
// session's images as one zip file.
func (a *App) SessionArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	files, err := a.Store.List(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			a.error(w, http.StatusNotFound, "session not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "failed to list session")
		return
	}

	entries := make([]zip.File, 0, len(files))
	for _, f := range files {
		data, err := a.Store.Read(id, f.Name)
		if err != nil {
			continue
		}
		entries = append(entries, zip.File{Name: f.Name, Data: data})
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		a.Log.Error().Err(err).Str("session", id).Msg("session: archive failed")
		a.error(w, http.StatusInternalServerError, "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session-"+id+".zip"))
	_, _ = w.Write(archive)
}
