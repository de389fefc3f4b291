package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"roteirize/handlers"
	"roteirize/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClassifier struct {
	meta        services.DestinationMeta
	err         error
	sawDeadline bool
}

func (s *stubClassifier) Classify(ctx context.Context, destination string) (services.DestinationMeta, error) {
	_, s.sawDeadline = ctx.Deadline()
	return s.meta, s.err
}

type stubNarrative struct {
	html        string
	err         error
	sawDeadline bool
}

func (s *stubNarrative) Generate(ctx context.Context, in services.NarrativeInput) (string, error) {
	_, s.sawDeadline = ctx.Deadline()
	return s.html, s.err
}

func newRouter(h *handlers.Roteiro) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/roteiro", h.Handle)
	return r
}

func newHandler(classifier services.Classifier, narrative services.NarrativeGenerator) *handlers.Roteiro {
	logger := zap.NewNop()
	return &handlers.Roteiro{
		Classifier: classifier,
		Narrative:  narrative,
		Iata:       services.NewIataResolver(logger),
		Fx:         services.NewFxResolver(logger),
		Flights:    services.NewFlightClient("", "", logger), // not configured: flight section degrades
		Mailer:     services.NewMailer("", "", "", "", "", logger),
		Logger:     logger,
	}
}

func postRoteiro(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/roteiro", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoteiroMaragogiEndToEnd(t *testing.T) {
	classifier := &stubClassifier{meta: services.DestinationMeta{
		NormalizedName: "Maragogi",
		RegionType:     "city",
		CountryName:    "Brasil",
		CountryCode:    "BR",
		CurrencyCode:   "BRL",
		CurrencyName:   "Real",
	}}
	narrative := &stubNarrative{html: "<h2>Dia 1</h2><p>Galés de Maragogi.</p>"}

	r := newRouter(newHandler(classifier, narrative))
	w := postRoteiro(t, r, `{
		"destino": "Maragogi",
		"origem": "São Paulo",
		"dias": 5,
		"pessoas": 2,
		"orcamento": "R$ 5.500"
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handlers.RoteiroResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.NotNil(t, resp.Orcamento.Total)
	require.NotNil(t, resp.Orcamento.PerPerson)
	assert.Equal(t, 5500.0, *resp.Orcamento.Total)
	assert.Equal(t, 2750.0, *resp.Orcamento.PerPerson)

	// domestic trip: FX short-circuits without touching any provider
	assert.Equal(t, 1.0, resp.Cambio.Rate)
	assert.Equal(t, "none", resp.Cambio.Provider)

	// flight section present even though no flight dates were given
	require.NotNil(t, resp.Voos)
	require.NotNil(t, resp.Voos.Error)
	assert.Equal(t, "missing_params", resp.Voos.Error.Code)

	assert.Contains(t, resp.HTML, "Maragogi")
	assert.Contains(t, resp.HTML, "R$ 5.500")
	assert.Contains(t, resp.HTML, "Galés de Maragogi")
	assert.Nil(t, resp.Email)
}

func TestRoteiroFlightSectionNotConfigured(t *testing.T) {
	classifier := &stubClassifier{meta: services.DestinationMeta{
		NormalizedName: "Maragogi", RegionType: "city",
		CountryName: "Brasil", CountryCode: "BR",
		CurrencyCode: "BRL", CurrencyName: "Real",
	}}
	r := newRouter(newHandler(classifier, &stubNarrative{html: "<p>ok</p>"}))

	// origin and destination resolve via alias tables, but the flight client
	// has no credential: explicit not_configured object, request still 200
	w := postRoteiro(t, r, `{
		"destino": "Maragogi",
		"origem": "São Paulo",
		"dias": 5,
		"pessoas": 2,
		"data_ida": "2025-09-10",
		"data_volta": "2025-09-15"
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RoteiroResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Voos)
	require.NotNil(t, resp.Voos.Error)
	assert.Equal(t, "not_configured", resp.Voos.Error.Code)
}

func TestRoteiroClassifierFailureFailsRequest(t *testing.T) {
	r := newRouter(newHandler(&stubClassifier{err: errors.New("model offline")}, &stubNarrative{}))

	w := postRoteiro(t, r, `{"destino": "Maragogi"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRoteiroNarrativeFailureDegradesToFallbackText(t *testing.T) {
	classifier := &stubClassifier{meta: services.DestinationMeta{
		NormalizedName: "Maragogi", RegionType: "city",
		CountryName: "Brasil", CountryCode: "BR",
		CurrencyCode: "BRL", CurrencyName: "Real",
	}}
	r := newRouter(newHandler(classifier, &stubNarrative{err: errors.New("timeout")}))

	w := postRoteiro(t, r, `{"destino": "Maragogi", "dias": 4}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RoteiroResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.HTML, "Não foi possível gerar o roteiro")
}

func TestRoteiroMissingClassifierRejected(t *testing.T) {
	r := newRouter(newHandler(nil, &stubNarrative{}))

	w := postRoteiro(t, r, `{"destino": "Maragogi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoteiroAICallsAreDeadlineBounded(t *testing.T) {
	classifier := &stubClassifier{meta: services.DestinationMeta{
		NormalizedName: "Maragogi", RegionType: "city",
		CountryName: "Brasil", CountryCode: "BR",
		CurrencyCode: "BRL", CurrencyName: "Real",
	}}
	narrative := &stubNarrative{html: "<p>ok</p>"}
	r := newRouter(newHandler(classifier, narrative))

	w := postRoteiro(t, r, `{"destino": "Maragogi", "dias": 2}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, classifier.sawDeadline)
	assert.True(t, narrative.sawDeadline)
}

func TestRoteiroInvalidBody(t *testing.T) {
	r := newRouter(newHandler(&stubClassifier{}, &stubNarrative{}))

	w := postRoteiro(t, r, `{"origem": "São Paulo"}`) // destino is required
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoteiroPDFFormat(t *testing.T) {
	classifier := &stubClassifier{meta: services.DestinationMeta{
		NormalizedName: "Maragogi", RegionType: "city",
		CountryName: "Brasil", CountryCode: "BR",
		CurrencyCode: "BRL", CurrencyName: "Real",
	}}
	r := newRouter(newHandler(classifier, &stubNarrative{html: "<p>Dia 1</p>"}))

	w := postRoteiro(t, r, `{"destino": "Maragogi", "dias": 3, "formato": "pdf"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", w.Body.String()[:4])
}
