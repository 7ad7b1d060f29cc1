package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"architect/app/usecase"
	"architect/internal/domain/entity"
)

type stubGenerator struct {
	text    string
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (entity.Generation, error) {
	s.prompts = append(s.prompts, prompt)
	return entity.Generation{Text: s.text, Provider: "stub", Model: "stub-1"}, nil
}

func (s *stubGenerator) Model() string { return "stub-1" }

var testAssets = entity.Assets{
	ImageURL:        "https://placehold.co/600x400?text=Architectural+Render",
	ModelURL:        "https://modelviewer.dev/shared-assets/models/Astronaut.glb",
	ViewerScriptURL: "https://unpkg.com/@google/model-viewer/dist/model-viewer.min.js",
}

type testServer struct {
	router  *mux.Router
	handler *RelayHandler
	gen     *stubGenerator
}

func newTestServer(t *testing.T, configErr error) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gen *stubGenerator
	var relay *usecase.RelayService
	if configErr == nil {
		gen = &stubGenerator{text: "Cantilevered glass volumes over a timber podium."}
		relay = usecase.NewRelayService(gen, nil, usecase.RelayOptions{Assets: testAssets}, logger)
	} else {
		relay = usecase.NewRelayService(nil, configErr, usecase.RelayOptions{Assets: testAssets}, logger)
	}

	h := NewRelayHandler(relay, logger, prometheus.NewRegistry())
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return &testServer{router: r, handler: h, gen: gen}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/design", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleForm(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "Professional 3D AI Architect")
	assert.Contains(t, body, `value="60"`)
	assert.Contains(t, body, `value="40"`)
	assert.Contains(t, body, `<option value="Modern" selected>`)
	assert.Contains(t, body, `value="Glass" checked`)
	assert.Contains(t, body, entity.DefaultBrief)
	assert.NotContains(t, body, "Generation is disabled")
	assert.NotContains(t, body, "total-area")
}

func TestHandleForm_ConfigBanner(t *testing.T) {
	s := newTestServer(t, &entity.ConfigurationError{Key: "GEMINI_API_KEY", Reason: "is not set"})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Generation is disabled.")
	assert.Contains(t, rec.Body.String(), "GEMINI_API_KEY is not set")
}

func TestHandleDesignForm(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(postForm(url.Values{
		"length":    {"60"},
		"width":     {"40"},
		"style":     {"Industrial"},
		"materials": {"Steel", "Concrete"},
		"floors":    {"3"},
		"brief":     {"A loft with a roof garden."},
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `id="total-area">7200 sq ft</div>`)
	assert.Contains(t, body, "Cantilevered glass volumes over a timber podium.")
	assert.Contains(t, body, entity.StatusFinalized)
	assert.Contains(t, body, `<option value="Industrial" selected>`)
	assert.Contains(t, body, `value="Steel" checked`)
	assert.NotContains(t, body, `value="Glass" checked`)
	assert.Contains(t, body, testAssets.ModelURL)

	require.Len(t, s.gen.prompts, 1)
	assert.Equal(t,
		"Design a Industrial house (60x40ft). Materials: ['Steel', 'Concrete']. Details: A loft with a roof garden..",
		s.gen.prompts[0])
}

func TestHandleDesignForm_Disabled(t *testing.T) {
	s := newTestServer(t, &entity.ConfigurationError{Key: "GEMINI_API_KEY", Reason: "is not set"})

	rec := s.do(postForm(url.Values{"length": {"60"}, "width": {"40"}, "floors": {"1"}}))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `id="total-area">2400 sq ft</div>`)
	assert.Contains(t, body, "Generation is disabled.")
	assert.NotContains(t, body, `id="generated"`)
}

func TestHandleDesignForm_Invalid(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(postForm(url.Values{"length": {"abc"}, "width": {"-4"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "length: must be a number")
	assert.NotContains(t, body, "total-area")
	assert.Empty(t, s.gen.prompts)
}

func TestHandleDesignForm_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(postForm(url.Values{"brief": {strings.Repeat("x", 2<<20)}}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "request body too large")
	assert.Contains(t, body, `value="60"`, "form falls back to defaults")
	assert.NotContains(t, body, "total-area")
	assert.Empty(t, s.gen.prompts)
}

func TestHandleCreateDesign(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/designs",
		strings.NewReader(`{"length": 10, "width": 20, "style": "minimalist", "materials": [], "floors": 2}`))
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res entity.DesignResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 200.0, res.Area)
	assert.Equal(t, 400.0, res.TotalArea)
	assert.Equal(t, entity.StyleMinimalist, res.Request.Style)
	assert.Equal(t, entity.OutcomeGenerated, res.Outcome)
	assert.Equal(t, "Design a Minimalist house (10x20ft). Materials: []. Details: "+entity.DefaultBrief+".", res.Prompt)
	require.NotNil(t, res.Generation)
	assert.Equal(t, testAssets.ImageURL, res.ImageURL)
}

func TestHandleCreateDesign_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/v1/designs", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad request body")

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/designs",
		strings.NewReader(`{"length": 0, "style": "Gothic"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields := make([]string, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "length")
	assert.Contains(t, fields, "style")
	assert.Empty(t, s.gen.prompts)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.handler.errCount.WithLabelValues(http.MethodPost, "/api/v1/designs", "400")))
}

func TestHandleCreateDesign_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)

	payload := `{"brief": "` + strings.Repeat("x", 2<<20) + `"}`
	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/v1/designs", strings.NewReader(payload)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad request body")
	assert.Empty(t, s.gen.prompts)
}

func TestMetricsNotOnPublicRouter(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleOptions(t *testing.T) {
	s := newTestServer(t, &entity.ConfigurationError{Key: "GEMINI_API_KEY", Reason: "is not set"})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp optionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.Styles, resp.Styles)
	assert.Equal(t, entity.Materials, resp.Materials)
	assert.Equal(t, 1, resp.MinFloors)
	assert.Equal(t, 3, resp.MaxFloors)
	assert.Equal(t, 60.0, resp.Defaults.Length)
	assert.False(t, resp.GenerationEnabled)
	assert.Contains(t, resp.ConfigError, "GEMINI_API_KEY")
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, true, resp["generation_enabled"])

	assert.Equal(t, 1.0, testutil.ToFloat64(s.handler.reqCount.WithLabelValues(http.MethodGet, "/api/v1/health")))
}

func dialStream(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/designs/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEvents(t *testing.T, conn *websocket.Conn) []streamEvent {
	t.Helper()
	var events []streamEvent
	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
			return events
		}
		events = append(events, ev)
	}
}

func TestHandleStream(t *testing.T) {
	s := newTestServer(t, nil)
	conn := dialStream(t, s)

	req := entity.DefaultDesignRequest()
	req.Floors = 2
	require.NoError(t, conn.WriteJSON(req))

	events := readEvents(t, conn)
	require.Len(t, events, 5)

	var statuses []string
	for _, ev := range events[:4] {
		assert.Equal(t, "status", ev.Type)
		statuses = append(statuses, ev.Message)
	}
	assert.Equal(t, entity.StatusWorkflowActive, statuses[0])
	assert.Equal(t, entity.StatusFinalized, statuses[3])

	last := events[4]
	assert.Equal(t, "result", last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, 4800.0, last.Result.TotalArea)
	assert.Equal(t, statuses, last.Result.Status)
}

func TestHandleStream_ValidationError(t *testing.T) {
	s := newTestServer(t, nil)
	conn := dialStream(t, s)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"width": -1}))

	events := readEvents(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	require.Len(t, events[0].Fields, 1)
	assert.Equal(t, "width", events[0].Fields[0].Field)
}

func TestParseDesignForm(t *testing.T) {
	t.Run("absent fields keep defaults", func(t *testing.T) {
		r := postForm(url.Values{"style": {"Modern"}})
		req, err := parseDesignForm(r)
		require.NoError(t, err)
		assert.Equal(t, 60.0, req.Length)
		assert.Equal(t, 40.0, req.Width)
		assert.Equal(t, 1, req.Floors)
		assert.Equal(t, entity.DefaultBrief, req.Brief)
		assert.NotNil(t, req.Materials)
		assert.Empty(t, req.Materials, "no ticked boxes means no materials")
	})

	t.Run("present fields override", func(t *testing.T) {
		r := postForm(url.Values{
			"length":    {" 12.5 "},
			"width":     {"8"},
			"floors":    {"2"},
			"materials": {"Wood"},
			"brief":     {""},
		})
		req, err := parseDesignForm(r)
		require.NoError(t, err)
		assert.Equal(t, 12.5, req.Length)
		assert.Equal(t, 8.0, req.Width)
		assert.Equal(t, 2, req.Floors)
		assert.Equal(t, []entity.Material{entity.MaterialWood}, req.Materials)
		assert.Empty(t, req.Brief)
	})

	t.Run("unparsable numbers", func(t *testing.T) {
		r := postForm(url.Values{"length": {"ten"}, "floors": {"1.5"}})
		_, err := parseDesignForm(r)
		var verr *entity.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 2)
		assert.Equal(t, "length", verr.Fields[0].Field)
		assert.Equal(t, "floors", verr.Fields[1].Field)
	})
}
