package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FxQuote is a BRL→target exchange rate with provenance. Rate 0 is the
// "unavailable" sentinel: displays must skip conversion instead of dividing.
type FxQuote struct {
	Base     string  `json:"base"`
	Quote    string  `json:"quote"`
	Rate     float64 `json:"rate"`
	Inverse  float64 `json:"inverse"`
	AsOfDate string  `json:"as_of_date"`
	Provider string  `json:"provider"`
}

// FxResolver fetches BRL→target rates from a fixed sequence of public
// providers, accepting the first finite positive answer.
type FxResolver struct {
	awesomeURL     string
	openERURL      string
	frankfurterURL string
	httpClient     *http.Client
	logger         *zap.Logger
}

func NewFxResolver(logger *zap.Logger) *FxResolver {
	return &FxResolver{
		awesomeURL:     "https://economia.awesomeapi.com.br",
		openERURL:      "https://open.er-api.com",
		frankfurterURL: "https://api.frankfurter.app",
		httpClient:     &http.Client{Timeout: 12 * time.Second},
		logger:         logger,
	}
}

// GetRate returns the BRL→target quote. The base currency short-circuits to
// rate 1 with no network call; when every provider fails the sentinel quote
// (rate 0, provider "unavailable") is returned. Never returns an error.
func (f *FxResolver) GetRate(ctx context.Context, target string) FxQuote {
	target = strings.ToUpper(strings.TrimSpace(target))
	today := time.Now().Format("2006-01-02")

	if target == "" || target == "BRL" {
		return FxQuote{Base: "BRL", Quote: "BRL", Rate: 1, Inverse: 1, AsOfDate: today, Provider: "none"}
	}

	providers := []attempt[float64]{
		{name: "awesomeapi", call: func(ctx context.Context) (float64, bool, error) {
			return f.fromAwesome(ctx, target)
		}},
		{name: "open-er-api", call: func(ctx context.Context) (float64, bool, error) {
			return f.fromOpenER(ctx, target)
		}},
		{name: "frankfurter", call: func(ctx context.Context) (float64, bool, error) {
			return f.fromFrankfurter(ctx, target)
		}},
	}

	rate, provider, err := firstAcceptable(ctx, providers, func(name string, cause error) {
		f.logger.Warn("fx provider failed, trying next",
			zap.String("provider", name), zap.String("target", target), zap.Error(cause))
	})
	if err != nil {
		f.logger.Warn("all fx providers failed", zap.String("target", target))
		return FxQuote{Base: "BRL", Quote: target, Rate: 0, Inverse: 0, AsOfDate: today, Provider: "unavailable"}
	}

	return FxQuote{
		Base:     "BRL",
		Quote:    target,
		Rate:     rate,
		Inverse:  1 / rate,
		AsOfDate: today,
		Provider: provider,
	}
}

func usableRate(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}

func (f *FxResolver) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fx request failed (%d): %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// AwesomeAPI quotes TARGET-BRL pairs (how many BRL one unit of TARGET buys),
// so the BRL→target rate is the inverse of the bid.
func (f *FxResolver) fromAwesome(ctx context.Context, target string) (float64, bool, error) {
	var payload map[string]struct {
		Bid string `json:"bid"`
	}
	url := fmt.Sprintf("%s/json/last/%s-BRL", f.awesomeURL, target)
	if err := f.getJSON(ctx, url, &payload); err != nil {
		return 0, false, err
	}

	entry, ok := payload[target+"BRL"]
	if !ok {
		return 0, false, nil
	}
	bid, err := strconv.ParseFloat(entry.Bid, 64)
	if err != nil || !usableRate(bid) {
		return 0, false, nil
	}
	return 1 / bid, true, nil
}

func (f *FxResolver) fromOpenER(ctx context.Context, target string) (float64, bool, error) {
	var payload struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := f.getJSON(ctx, f.openERURL+"/v6/latest/BRL", &payload); err != nil {
		return 0, false, err
	}
	rate, ok := payload.Rates[target]
	if !ok || !usableRate(rate) {
		return 0, false, nil
	}
	return rate, true, nil
}

func (f *FxResolver) fromFrankfurter(ctx context.Context, target string) (float64, bool, error) {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	url := fmt.Sprintf("%s/latest?from=BRL&to=%s", f.frankfurterURL, target)
	if err := f.getJSON(ctx, url, &payload); err != nil {
		return 0, false, err
	}
	rate, ok := payload.Rates[target]
	if !ok || !usableRate(rate) {
		return 0, false, nil
	}
	return rate, true, nil
}
