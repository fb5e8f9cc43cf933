package tempora

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	Mo "github.com/maroda/tempora/obvy"
	Mt "github.com/maroda/tempora/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxGlyphBody bounds a PUT /api/glyphs request
const maxGlyphBody = 1 << 20

var Version = "dev"

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket frames for the browser UI
// - JSON API for state, scale and glyphs
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)
	api.HandleFunc("/version", v.VersionHandler).Methods(http.MethodGet)
	api.HandleFunc("/system", v.SystemHandler).Methods(http.MethodGet)
	api.HandleFunc("/state", v.StateHandler).Methods(http.MethodGet)
	api.HandleFunc("/scale", v.ScaleHandler).Methods(http.MethodPost)
	api.HandleFunc("/glyphs", v.GlyphsHandler).Methods(http.MethodGet)
	api.HandleFunc("/glyphs", v.PutGlyphsHandler).Methods(http.MethodPut)

	// Static files for the browser UI
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/")))

	return r
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         http.StatusOK,
		}
		next.ServeHTTP(wrapped, r)
		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// SystemInfo describes the running engine for UIs
type SystemInfo struct {
	Version  string   `json:"version"`
	Mode     string   `json:"mode"`
	Slots    int      `json:"slots"`
	Timezone string   `json:"timezone"`
	Scale    string   `json:"scale"`
	Outputs  []string `json:"outputs"`
	MIDI     bool     `json:"midi"`
}

func (v *View) SystemHandler(w http.ResponseWriter, r *http.Request) {
	cfg := v.Engine.Config()

	v.MU.Lock()
	outputs := make([]string, 0, len(v.Outputs))
	for _, out := range v.Outputs {
		outputs = append(outputs, out.Type())
	}
	v.MU.Unlock()

	writeJSON(w, http.StatusOK, SystemInfo{
		Version:  Version,
		Mode:     string(cfg.DetectionMode),
		Slots:    cfg.SlotCount,
		Timezone: cfg.Timezone,
		Scale:    v.Engine.Transition().CurrentScale.String(),
		Outputs:  outputs,
		MIDI:     MIDIAvailable,
	})
}

// StateHandler returns the most recent Frame
func (v *View) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, v.Engine.Snapshot())
}

type scaleRequest struct {
	Scale string `json:"scale"`
}

// ScaleHandler starts a transition: 202 when accepted, 409 while one is running
func (v *View) ScaleHandler(w http.ResponseWriter, r *http.Request) {
	_, span := Mo.Tracer().Start(r.Context(), "api.scale")
	defer span.End()

	var req scaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "bad body")
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, err := Mt.ParseTimeScale(req.Scale)
	if err != nil {
		span.SetStatus(codes.Error, "bad scale")
		writeError(w, http.StatusBadRequest, err)
		return
	}

	accepted := v.RequestScale(target)
	span.SetAttributes(
		attribute.String("tempora.scale.target", target.String()),
		attribute.Bool("tempora.scale.accepted", accepted),
	)
	if !accepted {
		writeJSON(w, http.StatusConflict, v.Engine.Transition())
		return
	}
	writeJSON(w, http.StatusAccepted, v.Engine.Transition())
}

func (v *View) GlyphsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, v.Engine.Glyphs())
}

// GlyphResult reports how a replacement glyph set was taken
type GlyphResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// PutGlyphsHandler replaces the whole glyph set
func (v *View) PutGlyphsHandler(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxGlyphBody)

	var glyphs []Mt.Glyph
	if err := json.NewDecoder(body).Decode(&glyphs); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, errors.New("empty body"))
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}

	accepted, rejected := v.Engine.SetGlyphs(glyphs)
	writeJSON(w, http.StatusOK, GlyphResult{Accepted: accepted, Rejected: rejected})
}
