package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"architect/app/usecase"
	"architect/internal/domain/entity"
	"architect/internal/infrastructure/metrics"
)

const maxBodyBytes = 1 << 20

type RelayHandler struct {
	relay    usecase.DesignUsecase
	logger   *slog.Logger
	upgrader websocket.Upgrader
	pages    *pageRenderer

	reqDuration *prometheus.HistogramVec
	reqCount    *prometheus.CounterVec
	errCount    *prometheus.CounterVec
}

// NewRelayHandler registers its HTTP collectors on reg, or on the default
// registerer when reg is nil.
func NewRelayHandler(
	relay usecase.DesignUsecase,
	logger *slog.Logger,
	reg prometheus.Registerer,
) *RelayHandler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	reqDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	reqCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)

	errCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	reg.MustRegister(reqDuration, reqCount, errCount)

	return &RelayHandler{
		relay:  relay,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pages:       newPageRenderer(),
		reqDuration: reqDuration,
		reqCount:    reqCount,
		errCount:    errCount,
	}
}

func (h *RelayHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		method := r.Method

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		duration := time.Since(start).Seconds()
		statusStr := strconv.Itoa(rw.status)

		h.reqCount.WithLabelValues(method, path).Inc()
		h.reqDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		if rw.status >= 400 {
			h.errCount.WithLabelValues(method, path, statusStr).Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *RelayHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.withMetrics(h.handleForm)).Methods(http.MethodGet)
	r.HandleFunc("/design", h.withMetrics(h.handleDesignForm)).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/designs", h.withMetrics(h.handleCreateDesign)).Methods(http.MethodPost)
	api.HandleFunc("/designs/stream", h.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/options", h.withMetrics(h.handleOptions)).Methods(http.MethodGet)
	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []entity.FieldError `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	resp := errorResponse{Error: err.Error()}
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, code, resp)
}

func statusFor(err error) int {
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func (h *RelayHandler) configErrorText() string {
	if err := h.relay.ConfigError(); err != nil {
		return err.Error()
	}
	return ""
}

// GET /
func (h *RelayHandler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, pageData{
		Form:        entity.DefaultDesignRequest(),
		ConfigError: h.configErrorText(),
	})
}

// POST /design
func (h *RelayHandler) handleDesignForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data := pageData{ConfigError: h.configErrorText()}

	req, err := parseDesignForm(r)
	data.Form = req
	if err != nil {
		h.renderInvalid(w, data, err)
		return
	}

	res, err := h.relay.Submit(r.Context(), req)
	if err != nil {
		h.renderInvalid(w, data, err)
		return
	}
	data.Form = res.Request
	data.Result = res
	h.renderPage(w, http.StatusOK, data)
}

func (h *RelayHandler) renderInvalid(w http.ResponseWriter, data pageData, err error) {
	code := statusFor(err)
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		data.FieldErrors = verr.Fields
	case code < http.StatusInternalServerError:
		h.logger.Warn("design form rejected", "err", err)
		data.Error = err.Error()
	default:
		h.logger.Error("design form failed", "err", err)
		data.Error = err.Error()
	}
	h.renderPage(w, code, data)
}

func (h *RelayHandler) renderPage(w http.ResponseWriter, code int, data pageData) {
	data.fill(h.relay.Assets())
	if err := h.pages.render(w, code, data); err != nil {
		metrics.IncError("transport", "render")
		h.logger.Error("render page failed", "err", err)
	}
}

// POST /api/v1/designs
func (h *RelayHandler) handleCreateDesign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	req := entity.DefaultDesignRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		code := http.StatusBadRequest
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, fmt.Errorf("bad request body: %w", err))
		return
	}

	res, err := h.relay.Submit(r.Context(), req)
	if err != nil {
		if statusFor(err) >= 500 {
			h.logger.Error("create design failed", "err", err)
		}
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type streamEvent struct {
	Type    string               `json:"type"` // status|result|error
	Message string               `json:"message,omitempty"`
	Result  *entity.DesignResult `json:"result,omitempty"`
	Fields  []entity.FieldError  `json:"fields,omitempty"`
}

// GET /api/v1/designs/stream
// The client sends one design request; the server answers with status
// events, then a single result or error event, then closes.
func (h *RelayHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	req := entity.DefaultDesignRequest()
	if err := conn.ReadJSON(&req); err != nil {
		h.closeStream(conn, streamEvent{Type: "error", Message: "bad request: " + err.Error()})
		return
	}

	res, err := h.relay.SubmitWithProgress(r.Context(), req, func(status string) {
		if err := conn.WriteJSON(streamEvent{Type: "status", Message: status}); err != nil {
			h.logger.Debug("stream status write failed", "err", err)
		}
	})
	if err != nil {
		ev := streamEvent{Type: "error", Message: err.Error()}
		var verr *entity.ValidationError
		if errors.As(err, &verr) {
			ev.Fields = verr.Fields
		}
		h.closeStream(conn, ev)
		return
	}
	h.closeStream(conn, streamEvent{Type: "result", Result: res})
}

func (h *RelayHandler) closeStream(conn *websocket.Conn, ev streamEvent) {
	if err := conn.WriteJSON(ev); err != nil {
		h.logger.Debug("stream write failed", "err", err)
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, ev.Type)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

type optionsResponse struct {
	Styles            []entity.Style       `json:"styles"`
	Materials         []entity.Material    `json:"materials"`
	MinFloors         int                  `json:"min_floors"`
	MaxFloors         int                  `json:"max_floors"`
	Defaults          entity.DesignRequest `json:"defaults"`
	GenerationEnabled bool                 `json:"generation_enabled"`
	ConfigError       string               `json:"config_error,omitempty"`
}

// GET /api/v1/options
func (h *RelayHandler) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, optionsResponse{
		Styles:            entity.Styles,
		Materials:         entity.Materials,
		MinFloors:         entity.MinFloors,
		MaxFloors:         entity.MaxFloors,
		Defaults:          entity.DefaultDesignRequest(),
		GenerationEnabled: h.relay.ConfigError() == nil,
		ConfigError:       h.configErrorText(),
	})
}

// GET /api/v1/health
func (h *RelayHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok":                 true,
		"ts":                 time.Now().UTC(),
		"generation_enabled": h.relay.ConfigError() == nil,
	}
	writeJSON(w, http.StatusOK, status)
}
