package camera

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"camstream/internal/platform/metrics"
	"camstream/internal/platform/web"
	"camstream/internal/supervisor"

	"github.com/go-chi/chi/v5"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp2t"

	maxAddCameraBody = 64 << 10
)

// Handler exposes the camera API and the generated streams using go-chi.
type Handler struct {
	svc       *Service
	log       *slog.Logger
	metrics   *metrics.Metrics
	outputDir string
	files     http.Handler
}

// NewHandler returns a Handler serving stream files from outputDir. Metrics
// may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, outputDir string, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:       svc,
		log:       log,
		metrics:   m,
		outputDir: outputDir,
		files:     http.StripPrefix("/streams/", http.FileServer(http.Dir(outputDir))),
	}
}

// Routes registers the camera endpoints on r. addCameraLimit, if not nil,
// wraps POST /add_camera.
func (h *Handler) Routes(r chi.Router, addCameraLimit func(http.Handler) http.Handler) {
	r.Get("/cameras", h.ListCameras)
	if addCameraLimit != nil {
		r.With(addCameraLimit).Post("/add_camera", h.AddCamera)
	} else {
		r.Post("/add_camera", h.AddCamera)
	}
	r.Get("/workers", h.ListWorkers)
	r.With(web.NoCache).Get("/streams/*", h.ServeStream)
}

type addCameraResponse struct {
	Status string `json:"status"`
	Camera Camera `json:"camera"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type workersResponse struct {
	Data []supervisor.Worker `json:"data"`
}

// ListCameras handles GET /cameras.
func (h *Handler) ListCameras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListCameras())
}

// AddCamera handles POST /add_camera. Fields may be sent as a JSON object or
// as form values: cam_name, rtsp_url, sequence (required), active (optional,
// default true).
func (h *Handler) AddCamera(w http.ResponseWriter, r *http.Request) {
	in, err := decodeNewCamera(w, r)
	if err != nil {
		h.log.Debug("invalid add_camera body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cam, err := h.svc.AddCamera(in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCamera):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, ErrDuplicateCamera):
			h.log.Info("camera rejected duplicate name", slog.String("camera", in.Name))
			writeError(w, http.StatusConflict, err)
		default:
			h.log.Error("add camera failed", slog.String("camera", in.Name), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, errors.New("could not save camera"))
		}
		return
	}

	h.log.Info("camera added",
		slog.String("camera", cam.Name),
		slog.Int("sequence", cam.Sequence),
		slog.Bool("active", cam.Active),
		slog.String("stream_url", cam.StreamURL))
	if h.metrics != nil {
		h.metrics.IncCamerasAdded()
	}
	writeJSON(w, http.StatusOK, addCameraResponse{Status: "success", Camera: cam})
}

// ListWorkers handles GET /workers.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workersResponse{Data: h.svc.ListWorkers()})
}

// ServeStream handles GET /streams/*: manifests and segments written by the
// workers. A registered camera whose manifest does not exist yet gets an empty
// live playlist.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" || strings.HasSuffix(name, "/") {
		http.NotFound(w, r)
		return
	}

	switch path.Ext(name) {
	case supervisor.PlaylistExt:
		w.Header().Set("Content-Type", playlistContentType)
	case ".ts":
		w.Header().Set("Content-Type", segmentContentType)
	default:
		if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
	}

	if path.Ext(name) == supervisor.PlaylistExt && !strings.Contains(name, "/") {
		local := filepath.Join(h.outputDir, filepath.FromSlash(path.Clean("/" + name)))
		if _, err := os.Stat(local); errors.Is(err, os.ErrNotExist) {
			stem := strings.TrimSuffix(name, supervisor.PlaylistExt)
			if h.svc.HasStream(stem) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(BuildPendingPlaylist(supervisor.SegmentSeconds)))
				return
			}
		}
	}

	h.files.ServeHTTP(w, r)
}

type addCameraRequest struct {
	CamName  *string `json:"cam_name"`
	RTSPURL  *string `json:"rtsp_url"`
	Sequence *int    `json:"sequence"`
	Active   *bool   `json:"active"`
}

func decodeNewCamera(w http.ResponseWriter, r *http.Request) (NewCamera, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAddCameraBody)

	var req addCameraRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return NewCamera{}, fmt.Errorf("decode body: %w", err)
		}
	} else {
		if err := parseForm(r, ct); err != nil {
			return NewCamera{}, err
		}
		if err := formRequest(r, &req); err != nil {
			return NewCamera{}, err
		}
	}

	switch {
	case req.CamName == nil:
		return NewCamera{}, errors.New("cam_name is required")
	case req.RTSPURL == nil:
		return NewCamera{}, errors.New("rtsp_url is required")
	case req.Sequence == nil:
		return NewCamera{}, errors.New("sequence is required")
	}
	return NewCamera{
		Name:      *req.CamName,
		SourceURL: *req.RTSPURL,
		Sequence:  *req.Sequence,
		Active:    req.Active,
	}, nil
}

func parseForm(r *http.Request, contentType string) error {
	if contentType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxAddCameraBody); err != nil {
			return fmt.Errorf("parse form: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

func formRequest(r *http.Request, req *addCameraRequest) error {
	if _, ok := r.Form["cam_name"]; ok {
		v := r.FormValue("cam_name")
		req.CamName = &v
	}
	if _, ok := r.Form["rtsp_url"]; ok {
		v := r.FormValue("rtsp_url")
		req.RTSPURL = &v
	}
	if _, ok := r.Form["sequence"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("sequence")))
		if err != nil {
			return fmt.Errorf("sequence must be an integer: %w", err)
		}
		req.Sequence = &n
	}
	if _, ok := r.Form["active"]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(r.FormValue("active")))
		if err != nil {
			return fmt.Errorf("active must be a boolean: %w", err)
		}
		req.Active = &b
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Status: "error", Error: err.Error()})
}
