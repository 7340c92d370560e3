// Package httpapi exposes the forensics pipeline over HTTP.
//
// Photos are uploaded as multipart form files under the "file" field.
// Reports are returned as JSON and added to the shared workspace; stripped
// copies are returned as image/jpeg attachments.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ironsheep/photo-forensics-mcp/internal/config"
	"github.com/ironsheep/photo-forensics-mcp/internal/forensics"
	"github.com/ironsheep/photo-forensics-mcp/internal/workspace"
)

const uploadField = "file"

// API serves the HTTP endpoints.
type API struct {
	cfg    *config.Config
	ws     *workspace.Workspace
	logger *slog.Logger
}

// New returns an API backed by ws. A nil logger selects slog.Default().
func New(cfg *config.Config, ws *workspace.Workspace, logger *slog.Logger) *API {
	if cfg == nil {
		cfg = config.Default()
	}
	if ws == nil {
		ws = workspace.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{cfg: cfg, ws: ws, logger: logger}
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(a.cfg.HTTP.MaxUploadBytes))
			r.Post("/analyze", a.handleAnalyze)
			r.Post("/strip", a.handleStrip)
			r.Post("/hash", a.handleHash)
		})

		r.Route("/workspace", func(r chi.Router) {
			r.Get("/", a.handleWorkspaceList)
			r.Get("/current", a.handleWorkspaceCurrent)
			r.Post("/select/{index}", a.handleWorkspaceSelect)
			r.Delete("/{id}", a.handleWorkspaceRemove)
		})
	})
	return r
}

// analyzeResult is one uploaded file's outcome.
type analyzeResult struct {
	Name    string            `json:"name"`
	ID      string            `json:"id,omitempty"`
	Report  *forensics.Report `json:"report,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}

// handleAnalyze analyzes every uploaded file and adds the successes to the
// workspace. A single failed upload is reported as 422; in a batch, failures
// are reported per file with status 200.
// POST /v1/analyze?overlay=1&strip=1
func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	items, err := a.readUploads(r)
	if err != nil {
		a.uploadError(w, err)
		return
	}

	opts := a.cfg.ForensicsOptions(a.logger.With("request_id", middleware.GetReqID(r.Context())))
	opts.Overlay = queryBool(r, "overlay")
	opts.Strip = queryBool(r, "strip")

	batch := forensics.AnalyzeBatch(r.Context(), items, opts)
	results := make([]analyzeResult, len(batch))
	for i, res := range batch {
		out := analyzeResult{Name: res.Name, Error: res.Error, Message: res.Message}
		if res.Report != nil {
			out.ID = a.ws.Add(res.Name, res.Report).ID
			out.Report = res.Report
		}
		results[i] = out
	}

	if len(results) == 1 && results[0].Report == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  results[0].Message,
			"detail": results[0].Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// handleStrip returns a metadata-free JPEG of the first uploaded file.
// POST /v1/strip?quality=95
func (a *API) handleStrip(w http.ResponseWriter, r *http.Request) {
	quality := a.cfg.Strip.Quality
	if q := r.URL.Query().Get("quality"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "quality must be an integer from 1 to 100")
			return
		}
		quality = n
	}

	items, err := a.readUploads(r)
	if err != nil {
		a.uploadError(w, err)
		return
	}
	item := items[0]

	artifact, err := forensics.StripBytes(item.Data, quality)
	if err != nil {
		a.logger.Warn("could not strip image", "file", item.Name, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  forensics.UserMessage,
			"detail": err.Error(),
		})
		return
	}

	name := strings.TrimSuffix(item.Name, filepath.Ext(item.Name)) + "-stripped.jpg"
	w.Header().Set("Content-Type", artifact.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(artifact.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		a.logger.Warn("failed to write stripped image", "error", err)
	}
}

// handleHash digests the raw request body.
// POST /v1/hash?algorithm=sha256
func (a *API) handleHash(w http.ResponseWriter, r *http.Request) {
	algo := strings.ToLower(r.URL.Query().Get("algorithm"))
	if algo == "" {
		algo = a.cfg.HashAlgorithm
	}
	if !forensics.KnownAlgorithm(algo) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown algorithm %q", algo))
		return
	}

	digest, err := forensics.HashReader(algo, r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, digest)
}

// GET /v1/workspace
func (a *API) handleWorkspaceList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selected": a.ws.SelectedIndex(),
		"entries":  a.ws.List(),
	})
}

// GET /v1/workspace/current
func (a *API) handleWorkspaceCurrent(w http.ResponseWriter, _ *http.Request) {
	entry, err := a.ws.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// POST /v1/workspace/select/{index}
func (a *API) handleWorkspaceSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	entry, err := a.ws.Select(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DELETE /v1/workspace/{id}
func (a *API) handleWorkspaceRemove(w http.ResponseWriter, r *http.Request) {
	if err := a.ws.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errNoUpload = errors.New("no file uploaded")

// readUploads reads every file posted under the upload field.
func (a *API) readUploads(r *http.Request) ([]forensics.Item, error) {
	if err := r.ParseMultipartForm(a.cfg.HTTP.MaxUploadBytes); err != nil {
		return nil, err
	}
	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, errNoUpload
	}

	items := make([]forensics.Item, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		items = append(items, forensics.Item{Name: filepath.Base(fh.Filename), Data: data})
	}
	return items, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (a *API) uploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
