package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"policyhub/internal/archive"
	"policyhub/internal/core"

	"go.uber.org/zap"
)

// Service is the slice of the core service the dashboard consumes.
type Service interface {
	Load(ctx context.Context, force bool) (*core.Snapshot, error)
	Refresh(ctx context.Context) (*core.Snapshot, error)
	Query(snap *core.Snapshot, q core.Query) *core.View
	Sources() []core.SourceSpec
}

// Exporter persists rendered views as archive artifacts.
type Exporter interface {
	Archive(ctx context.Context, view *core.View, format core.ExportFormat) (archive.Info, error)
	List(ctx context.Context) ([]archive.Info, error)
	Open(ctx context.Context, id string) (archive.Info, io.ReadCloser, error)
	Stat(ctx context.Context, id string) (archive.Info, error)
}

// Handler serves the policyhub dashboard and its JSON API.
type Handler struct {
	Service Service
	Exports Exporter     // optional; export persistence endpoints 404 when nil
	Metrics http.Handler // optional; served at /metrics when set
	Logger  *zap.Logger
}

// NewHandler constructs a dashboard handler over svc.
func NewHandler(svc Service) *Handler {
	return &Handler{Service: svc, Logger: zap.NewNop()}
}

// Routes wraps the handler with the response headers every page shares.
func (h *Handler) Routes() http.Handler {
	return withSecurityHeaders(h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "service not configured")
		return
	}

	path := r.URL.Path
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	switch {
	case r.Method == http.MethodGet && path == "/":
		h.handleIndex(w, r)
	case r.Method == http.MethodGet && path == "/static/app.css":
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		_, _ = w.Write([]byte(appCSS))
	case r.Method == http.MethodGet && path == "/export.csv":
		h.handleExportCSV(w, r)
	case r.Method == http.MethodPost && path == "/refresh":
		h.handleRefresh(w, r)
	case r.Method == http.MethodGet && path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case path == "/metrics" && h.Metrics != nil:
		h.Metrics.ServeHTTP(w, r)
	case r.Method == http.MethodGet && path == "/api/v1/records":
		h.handleRecords(w, r)
	case r.Method == http.MethodGet && path == "/api/v1/sources":
		h.handleSources(w, r)
	case strings.HasPrefix(path, "/api/v1/exports"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
	default:
		http.NotFound(w, r)
	}
}

// loadView loads the current snapshot and applies the request's filters.
func (h *Handler) loadView(r *http.Request) (*core.View, error) {
	snap, err := h.Service.Load(r.Context(), false)
	if err != nil {
		return nil, err
	}
	return h.Service.Query(snap, parseQuery(r)), nil
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, err := h.loadView(r)
	if err != nil {
		h.Logger.Error("dashboard load failed", zap.Error(err))
		renderErrorPage(w, http.StatusBadGateway, err.Error())
		return
	}
	renderIndex(w, buildPage(view, r.URL.RawQuery))
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := h.loadView(r)
	if err != nil {
		h.Logger.Error("csv export load failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	filename := core.ExportFilename(time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if err := core.WriteCSV(w, view); err != nil {
		h.Logger.Error("csv export write failed", zap.Error(err))
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Service.Refresh(r.Context()); err != nil {
		h.Logger.Error("refresh failed", zap.Error(err))
		renderErrorPage(w, http.StatusBadGateway, err.Error())
		return
	}
	target := "/"
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	view, err := h.loadView(r)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSources(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Load(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sources":  h.Service.Sources(),
		"counts":   snap.Counts,
		"warnings": snap.Warnings,
	})
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == "/api/v1/exports" {
		switch r.Method {
		case http.MethodPost:
			h.handleExportCreate(w, r)
		case http.MethodGet:
			h.handleExportList(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if !strings.HasPrefix(path, "/api/v1/exports/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(path, "/api/v1/exports/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("download") == "1" {
		h.handleExportDownload(w, r, id)
		return
	}
	info, err := h.Exports.Stat(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": info})
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.loadView(r)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	info, err := h.Exports.Archive(r.Context(), view, format)
	if err != nil {
		h.Logger.Error("export archive failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export could not be stored")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"export": info})
}

func (h *Handler) handleExportList(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Exports.List(r.Context())
	if err != nil {
		h.Logger.Error("export list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "exports could not be listed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": infos})
}

func (h *Handler) handleExportDownload(w http.ResponseWriter, r *http.Request, id string) {
	info, rc, err := h.Exports.Open(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	defer rc.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", id))
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Error("export download failed", zap.Error(err))
	}
}

func parseQuery(r *http.Request) core.Query {
	values := r.URL.Query()
	return core.Query{
		Keyword:    strings.TrimSpace(values.Get("q")),
		Categories: cleanList(values["category"]),
		Tags:       cleanList(values["tag"]),
		Sources:    cleanList(values["source"]),
		Sort:       core.ParseSortOrder(values.Get("sort")),
	}
}

func cleanList(raw []string) []string {
	var out []string
	for _, v := range raw {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
