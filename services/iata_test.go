package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestResolver(autocompleteURL string) *IataResolver {
	r := NewIataResolver(zap.NewNop())
	if autocompleteURL != "" {
		r.autocompleteURL = autocompleteURL
	} else {
		// unreachable address so accidental network calls fail fast
		r.autocompleteURL = "http://127.0.0.1:1/places2"
	}
	return r
}

func TestResolveAliasTable(t *testing.T) {
	r := newTestResolver("")

	tests := []struct {
		term string
		want string
	}{
		// no airport of its own
		{"Maragogi", "MCZ"},
		// comma-truncated variant
		{"maragogi, alagoas", "MCZ"},
		{"Porto de Galinhas", "REC"},
		{"Jericoacoara", "JJD"},
		{"São Paulo", "SAO"},
		{"rio de janeiro", "RIO"},
		{"Fernando de Noronha", "FEN"},
		// country suffix stripped
		{"gramado brasil", "POA"},
		{"Lisboa", "LIS"},
		{"portugal", "LIS"},
		{"nova york", "NYC"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(context.Background(), tt.term), "term %q", tt.term)
	}
}

func TestResolveBareCodeCollapsesToCity(t *testing.T) {
	r := newTestResolver("")

	// an embedded airport code still goes through the city-preference rule
	assert.Equal(t, "SAO", r.Resolve(context.Background(), "São Paulo, GRU"))
	assert.Equal(t, "RIO", r.Resolve(context.Background(), "GIG"))
	assert.Equal(t, "NYC", r.Resolve(context.Background(), "voo para JFK"))
	// codes without a metro grouping pass through unchanged
	assert.Equal(t, "SSA", r.Resolve(context.Background(), "SSA"))
}

func TestResolveAutocompleteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Trancosinho do Norte", req.URL.Query().Get("term"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"code":"TDN","type":"airport","city_code":"TCN","name":"Aeroporto Trancosinho"},
			{"code":"TCN","type":"city","name":"Trancosinho do Norte"}
		]`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL + "/places2")
	// city-typed result preferred over the airport that appears first
	assert.Equal(t, "TCN", r.Resolve(context.Background(), "Trancosinho do Norte"))
}

func TestResolveAutocompleteAirportCityCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"code":"GRU","type":"airport","city_code":"SAO"}]`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL + "/places2")
	assert.Equal(t, "SAO", r.Resolve(context.Background(), "aeroporto de guarulhos"))
}

func TestResolveUnresolvedOnNetworkFailure(t *testing.T) {
	r := newTestResolver("")
	// unknown place + dead autocomplete endpoint: unresolved, no panic
	assert.Equal(t, "", r.Resolve(context.Background(), "lugar que nao existe"))
}

func TestResolveEmptyTerm(t *testing.T) {
	r := newTestResolver("")
	assert.Equal(t, "", r.Resolve(context.Background(), ""))
	assert.Equal(t, "", r.Resolve(context.Background(), "   "))
}
