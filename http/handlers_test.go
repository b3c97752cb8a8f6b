package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"fraudguard/audit"
	"fraudguard/config"
	"fraudguard/ml"
	"fraudguard/monitoring"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type fakeModel struct {
	prob  float64
	err   error
	calls int
	last  []float64
}

func (f *fakeModel) PredictProba(features []float64) (float64, error) {
	f.calls++
	f.last = append([]float64(nil), features...)
	return f.prob, f.err
}

func (f *fakeModel) InputWidth() int {
	return ml.NumFormFields
}

// scenarioOrder is Time, Amount, V1..V28.
func scenarioOrder() []string {
	order := []string{"Time", "Amount"}
	for i := 1; i <= 28; i++ {
		order = append(order, "V"+strconv.Itoa(i))
	}
	return order
}

var predictionIDPattern = regexp.MustCompile(`<code id="predictionId">([0-9a-f-]+)</code>`)

type testEnv struct {
	handler  http.Handler
	model    *fakeModel
	metrics  *monitoring.Metrics
	recorder *audit.Recorder
}

func newTestEnv(t *testing.T, model *fakeModel) *testEnv {
	t.Helper()
	var artifact *ml.Artifact
	if model == nil {
		artifact = ml.Unavailable(errors.New("open fraud_detection_package.json: no such file"))
	} else {
		var err error
		artifact, err = ml.NewArtifact(model, 0.5, scenarioOrder(), ml.Metadata{Version: "test-v1"})
		if err != nil {
			t.Fatalf("artifact: %v", err)
		}
	}

	recorder, err := audit.NewRecorder(16, zap.NewNop())
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	defaults := config.Default()
	handler := NewHandler(ServerConfig{Addr: defaults.Addr(), MaxBodyBytes: defaults.HTTP.MaxBodyBytes}, Deps{
		Predictor: ml.NewPredictor(artifact),
		Recorder:  recorder,
		Metrics:   metrics,
		Logger:    zap.NewNop(),
	})
	return &testEnv{handler: handler, model: model, metrics: metrics, recorder: recorder}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func validForm(amount string) url.Values {
	form := url.Values{}
	for _, name := range ml.FormFields() {
		form.Set(name, "0")
	}
	form.Set("Amount", amount)
	return form
}

func postForm(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealthHandler(t *testing.T) {
	for name, model := range map[string]*fakeModel{"loaded": {prob: 0.1}, "degraded": nil} {
		t.Run(name, func(t *testing.T) {
			rr := newTestEnv(t, model).do(httptest.NewRequest(http.MethodGet, "/health", nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
			}
			expected := `{"status":"running"}`
			if strings.TrimSpace(rr.Body.String()) != expected {
				t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
			}
		})
	}
}

func TestIndexRendersForm(t *testing.T) {
	rr := newTestEnv(t, &fakeModel{}).do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range ml.FormFields() {
		if !strings.Contains(body, `name="`+name+`"`) {
			t.Fatalf("form is missing input %s", name)
		}
	}
	if !strings.Contains(body, `class="result hidden"`) {
		t.Fatal("result box should be hidden before a prediction")
	}
}

func TestPredictScenarios(t *testing.T) {
	cases := []struct {
		prob  float64
		label string
		shown string
	}{
		{0.87, ml.FraudLabel, "0.87"},
		{0.12, ml.LegitimateLabel, "0.12"},
	}
	for _, tc := range cases {
		env := newTestEnv(t, &fakeModel{prob: tc.prob})
		rr := env.do(postForm(validForm("100")))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		body := rr.Body.String()
		if !strings.Contains(body, `<h2 id="resultText">`+tc.label+`</h2>`) {
			t.Fatalf("expected label %q in body:\n%s", tc.label, body)
		}
		if !strings.Contains(body, `<span id="probabilityText">`+tc.shown+`</span>`) {
			t.Fatalf("expected probability %s in body:\n%s", tc.shown, body)
		}
		if !strings.Contains(body, "100.00") {
			t.Fatal("expected submitted amount to be echoed")
		}

		// Time, Amount, V1..V28
		if env.model.last[0] != 0 || env.model.last[1] != 100 {
			t.Fatalf("classifier received wrong order: %v", env.model.last)
		}
	}
}

func TestPredictMultipartForm(t *testing.T) {
	env := newTestEnv(t, &fakeModel{prob: 0.9})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, values := range validForm("12.5") {
		mw.WriteField(name, values[0])
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/predict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if env.model.last[1] != 12.5 {
		t.Fatalf("expected amount 12.5, got %v", env.model.last[1])
	}
}

func TestPredictMissingFieldIsClientError(t *testing.T) {
	env := newTestEnv(t, &fakeModel{prob: 0.9})
	form := validForm("100")
	form.Del("V17")

	rr := env.do(postForm(form))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "V17") {
		t.Fatalf("expected missing field in message, got %q", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "resultText") {
		t.Fatal("client errors must not render a prediction")
	}
	if env.model.calls != 0 {
		t.Fatal("classifier must not be called for invalid input")
	}
}

func TestPredictInvalidNumber(t *testing.T) {
	env := newTestEnv(t, &fakeModel{prob: 0.9})
	for _, bad := range []string{"abc", "NaN", "Inf", " "} {
		rr := env.do(postForm(validForm(bad)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", bad, rr.Code)
		}
	}
	if env.model.calls != 0 {
		t.Fatal("classifier must not be called for invalid input")
	}
}

func TestPredictMalformedBody(t *testing.T) {
	env := newTestEnv(t, &fakeModel{prob: 0.9})

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("not a multipart body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	rr := env.do(req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "malformed form body" {
		t.Fatalf("expected fixed message, got %q", got)
	}
	if env.model.calls != 0 {
		t.Fatal("classifier must not be called for a malformed body")
	}
}

func TestPredictBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, &fakeModel{prob: 0.9})
	form := validForm("100")
	form.Set("padding", strings.Repeat("x", int(config.Default().HTTP.MaxBodyBytes)))

	rr := env.do(postForm(form))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "request body too large" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestPredictModelNotLoaded(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, amount := range []string{"0", "100", "99999"} {
		rr := env.do(postForm(validForm(amount)))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, ml.ModelNotLoadedLabel) {
			t.Fatalf("expected model-not-loaded label in body:\n%s", body)
		}
		if !strings.Contains(body, `<span id="probabilityText">N/A</span>`) {
			t.Fatalf("expected N/A probability in body:\n%s", body)
		}
	}
	got := testutil.ToFloat64(env.metrics.PredictionsTotal.WithLabelValues("model_unavailable", "none"))
	if got != 3 {
		t.Fatalf("expected 3 unavailable predictions, got %v", got)
	}
}

func TestPredictClassifierError(t *testing.T) {
	env := newTestEnv(t, &fakeModel{err: errors.New("bad shape")})
	rr := env.do(postForm(validForm("100")))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, ml.PredictionErrLabel) || !strings.Contains(body, ">N/A<") {
		t.Fatalf("expected prediction error page:\n%s", body)
	}
}

func TestPredictionLookup(t *testing.T) {
	env := newTestEnv(t, &fakeModel{prob: 0.87})
	body := env.do(postForm(validForm("100"))).Body.String()

	// 页面上回显的引用编号即审计记录ID
	match := predictionIDPattern.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("expected a prediction reference in body:\n%s", body)
	}
	id := match[1]

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/predictions/"+id, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["verdict"] != "fraud" || payload["probability"].(float64) != 0.87 || payload["model_version"] != "test-v1" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/predictions/unknown", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestModelInfo(t *testing.T) {
	rr := newTestEnv(t, nil).do(httptest.NewRequest(http.MethodGet, "/api/model", nil))
	var info ml.ArtifactInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if info.Available || info.Threshold != ml.DefaultThreshold || info.LoadError == "" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	env := newTestEnv(t, &fakeModel{prob: 0.5})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/static/script.js", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "predictionForm") {
		t.Fatalf("unexpected static response %d", rr.Code)
	}

	env.do(postForm(validForm("1")))
	rr = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `fraudguard_predictions_total{outcome="success",verdict="fraud"} 1`) {
		t.Fatalf("expected prediction counter in metrics:\n%s", rr.Body.String())
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
