package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestFx(awesome, openER, frankfurter string) *FxResolver {
	f := NewFxResolver(zap.NewNop())
	dead := "http://127.0.0.1:1"
	f.awesomeURL, f.openERURL, f.frankfurterURL = dead, dead, dead
	if awesome != "" {
		f.awesomeURL = awesome
	}
	if openER != "" {
		f.openERURL = openER
	}
	if frankfurter != "" {
		f.frankfurterURL = frankfurter
	}
	return f
}

func TestGetRateBaseCurrencyShortCircuits(t *testing.T) {
	// all providers dead: BRL must resolve without any network call
	f := newTestFx("", "", "")

	q := f.GetRate(context.Background(), "BRL")
	assert.Equal(t, 1.0, q.Rate)
	assert.Equal(t, 1.0, q.Inverse)
	assert.Equal(t, "none", q.Provider)
	assert.Equal(t, "BRL", q.Quote)
}

func TestGetRateAllProvidersDown(t *testing.T) {
	f := newTestFx("", "", "")

	q := f.GetRate(context.Background(), "USD")
	assert.Equal(t, 0.0, q.Rate)
	assert.Equal(t, 0.0, q.Inverse)
	assert.Equal(t, "unavailable", q.Provider)
}

func TestGetRateFirstProviderWins(t *testing.T) {
	awesome := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// AwesomeAPI quotes USD-BRL; bid 5.00 means 1 BRL = 0.20 USD
		w.Write([]byte(`{"USDBRL":{"bid":"5.00"}}`))
	}))
	defer awesome.Close()

	f := newTestFx(awesome.URL, "", "")

	q := f.GetRate(context.Background(), "USD")
	assert.InDelta(t, 0.20, q.Rate, 0.0001)
	assert.InDelta(t, 5.0, q.Inverse, 0.0001)
	assert.Equal(t, "awesomeapi", q.Provider)
}

func TestGetRateFallsThroughToSecondProvider(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	openER := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/latest/BRL", r.URL.Path)
		w.Write([]byte(`{"result":"success","rates":{"USD":0.19,"EUR":0.17}}`))
	}))
	defer openER.Close()

	f := newTestFx(broken.URL, openER.URL, "")

	q := f.GetRate(context.Background(), "EUR")
	assert.InDelta(t, 0.17, q.Rate, 0.0001)
	assert.Equal(t, "open-er-api", q.Provider)
}

func TestGetRateRejectsNonPositiveRates(t *testing.T) {
	zeroRate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","rates":{"USD":0}}`))
	}))
	defer zeroRate.Close()

	frankfurter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"USD":0.21}}`))
	}))
	defer frankfurter.Close()

	f := newTestFx("", zeroRate.URL, frankfurter.URL)

	q := f.GetRate(context.Background(), "USD")
	assert.InDelta(t, 0.21, q.Rate, 0.0001)
	assert.Equal(t, "frankfurter", q.Provider)
}
