package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ykurilov/banana-editor/internal/infra"
	"github.com/ykurilov/banana-editor/internal/providers/image"
	"github.com/ykurilov/banana-editor/internal/session"
)

// App carries the dependencies shared by all handlers. Configuration is
// injected once at startup; handlers never consult the environment.
type App struct {
	Cfg       *infra.Config
	Log       infra.Logger
	Providers map[string]image.Caller
	Store     *session.Store
}

func NewApp(cfg *infra.Config, log infra.Logger, providers map[string]image.Caller, store *session.Store) *App {
	return &App{Cfg: cfg, Log: log, Providers: providers, Store: store}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
