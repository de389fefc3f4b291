package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxRoundTripSpanDays is the longest departure→return span the pricing API
// accepts for a single round-trip query. Longer trips (and open-ended ones)
// are searched as two independent one-way legs.
const maxRoundTripSpanDays = 30

// dateSpanErrorMarkers identify the provider's rejection of an
// over-long round-trip query, as opposed to any other failure.
var dateSpanErrorMarkers = []string{"30 days", "date range", "return_at"}

// FlightOffer is one priced itinerary, normalized from the provider's shape.
// PriceNumber and PriceText are kept separate so callers can both compute and
// display without re-parsing.
type FlightOffer struct {
	From         string  `json:"origem"`
	To           string  `json:"destino"`
	DepartDate   string  `json:"data_ida"`
	ReturnDate   string  `json:"data_volta,omitempty"`
	Airline      string  `json:"companhia,omitempty"`
	Stops        int     `json:"escalas"`
	DurationText string  `json:"duracao,omitempty"`
	PriceNumber  float64 `json:"preco"`
	PriceText    string  `json:"preco_texto"`
	Currency     string  `json:"moeda"`
	DeepLink     string  `json:"link,omitempty"`
}

// CombinedFlightOffer pairs an independently priced outbound and return leg
// into a synthesized round trip.
type CombinedFlightOffer struct {
	Outbound     FlightOffer `json:"ida"`
	Return       FlightOffer `json:"volta"`
	TotalPrice   float64     `json:"preco_total"`
	PriceText    string      `json:"preco_texto"`
	TotalStops   int         `json:"escalas"`
	DurationText string      `json:"duracao"`
}

// FlightError is a structured provider failure carried in results instead of
// raised as an error.
type FlightError struct {
	Code    string `json:"code"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// FlightResult is the outcome of one search. Exactly one of Error or the
// item lists is meaningful. Mode is "round_trip" or "decomposed".
type FlightResult struct {
	Mode          string                `json:"modo"`
	Items         []FlightOffer         `json:"items,omitempty"`
	ItemsOutbound []FlightOffer         `json:"items_ida,omitempty"`
	ItemsReturn   []FlightOffer         `json:"items_volta,omitempty"`
	ItemsCombined []CombinedFlightOffer `json:"items_combinados,omitempty"`
	Error         *FlightError          `json:"error,omitempty"`
}

// FlightClient searches the Travelpayouts cheap-prices API in BRL.
type FlightClient struct {
	token      string
	marker     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewFlightClient(token, marker string, logger *zap.Logger) *FlightClient {
	return &FlightClient{
		token:      token,
		marker:     marker,
		baseURL:    "https://api.travelpayouts.com",
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}
}

// Search prices origin→destination for the given dates. Round-trip queries
// whose span exceeds the provider window (and queries without a return date)
// run in decomposed mode: both legs priced independently and the cheapest
// combinations synthesized.
func (c *FlightClient) Search(ctx context.Context, origin, destination, departDate, returnDate string, limit int) *FlightResult {
	if c.token == "" {
		return &FlightResult{Error: &FlightError{
			Code:    "not_configured",
			Message: "busca de voos indisponível: credencial da API de passagens não configurada",
		}}
	}
	if limit <= 0 {
		limit = 10
	}

	if returnDate == "" || spanDays(departDate, returnDate) > maxRoundTripSpanDays {
		return c.searchDecomposed(ctx, origin, destination, departDate, returnDate, limit)
	}

	items, ferr := c.query(ctx, origin, destination, departDate, returnDate, limit)
	if ferr != nil {
		if isDateSpanRejection(ferr.Message) {
			// provider refused the span even though we pre-checked; one
			// automatic fallback to decomposed mode, no loop
			c.logger.Info("round-trip rejected for date span, retrying decomposed",
				zap.String("origin", origin), zap.String("destination", destination))
			return c.searchDecomposed(ctx, origin, destination, departDate, returnDate, limit)
		}
		return &FlightResult{Mode: "round_trip", Error: ferr}
	}

	return &FlightResult{Mode: "round_trip", Items: items}
}

func (c *FlightClient) searchDecomposed(ctx context.Context, origin, destination, departDate, returnDate string, limit int) *FlightResult {
	result := &FlightResult{Mode: "decomposed"}

	outbound, ferr := c.query(ctx, origin, destination, departDate, "", limit)
	if ferr != nil {
		result.Error = ferr
		return result
	}
	result.ItemsOutbound = outbound

	if returnDate != "" {
		inbound, ferr := c.query(ctx, destination, origin, returnDate, "", limit)
		if ferr != nil {
			// outbound leg still useful on its own
			c.logger.Warn("return leg search failed", zap.String("message", ferr.Message))
		} else {
			result.ItemsReturn = inbound
		}
	}

	result.ItemsCombined = combineLegs(result.ItemsOutbound, result.ItemsReturn, limit)
	return result
}

// combineLegs builds the Cartesian product of the 3 cheapest offers of each
// leg, sorted ascending by total price and truncated to limit.
func combineLegs(outbound, inbound []FlightOffer, limit int) []CombinedFlightOffer {
	if len(outbound) == 0 || len(inbound) == 0 {
		return nil
	}

	out := cheapestN(outbound, 3)
	in := cheapestN(inbound, 3)

	combined := make([]CombinedFlightOffer, 0, len(out)*len(in))
	for _, o := range out {
		for _, i := range in {
			total := o.PriceNumber + i.PriceNumber
			combined = append(combined, CombinedFlightOffer{
				Outbound:     o,
				Return:       i,
				TotalPrice:   total,
				PriceText:    FormatBRL(total),
				TotalStops:   o.Stops + i.Stops,
				DurationText: joinDurations(o.DurationText, i.DurationText),
			})
		}
	}

	sort.Slice(combined, func(a, b int) bool {
		return combined[a].TotalPrice < combined[b].TotalPrice
	})
	if len(combined) > limit {
		combined = combined[:limit]
	}
	return combined
}

func cheapestN(offers []FlightOffer, n int) []FlightOffer {
	sorted := make([]FlightOffer, len(offers))
	copy(sorted, offers)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].PriceNumber < sorted[b].PriceNumber
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func joinDurations(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " + " + b
	}
}

// Travelpayouts prices_for_dates response shapes.
type tpResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Data    []tpItem `json:"data"`
}

type tpItem struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	DepartureAt string  `json:"departure_at"`
	ReturnAt    string  `json:"return_at"`
	Airline     string  `json:"airline"`
	Transfers   int     `json:"transfers"`
	Duration    int     `json:"duration"`
	Price       float64 `json:"price"`
	Link        string  `json:"link"`
}

func (c *FlightClient) query(ctx context.Context, origin, destination, departDate, returnDate string, limit int) ([]FlightOffer, *FlightError) {
	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("departure_at", departDate)
	q.Set("currency", "brl")
	q.Set("sorting", "price")
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("token", c.token)
	if returnDate != "" {
		q.Set("return_at", returnDate)
	} else {
		q.Set("one_way", "true")
	}

	reqURL := c.baseURL + "/aviasales/v3/prices_for_dates?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FlightError{Code: "request", Message: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FlightError{Code: "network", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var payload tpResponse
	if jsonErr := json.Unmarshal(body, &payload); jsonErr != nil {
		payload.Error = strings.TrimSpace(string(body))
	}

	if resp.StatusCode != http.StatusOK || (!payload.Success && payload.Error != "") {
		msg := payload.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &FlightError{
			Code:    "provider",
			Status:  resp.StatusCode,
			Message: msg,
		}
	}

	items := make([]FlightOffer, 0, len(payload.Data))
	for _, it := range payload.Data {
		items = append(items, c.mapOffer(it))
	}
	return items, nil
}

func (c *FlightClient) mapOffer(it tpItem) FlightOffer {
	offer := FlightOffer{
		From:         it.Origin,
		To:           it.Destination,
		DepartDate:   firstDatePart(it.DepartureAt),
		ReturnDate:   firstDatePart(it.ReturnAt),
		Airline:      it.Airline,
		Stops:        it.Transfers,
		DurationText: formatMinutes(it.Duration),
		PriceNumber:  it.Price,
		PriceText:    FormatBRL(it.Price),
		Currency:     "BRL",
	}
	if it.Link != "" {
		link := it.Link
		if c.marker != "" {
			sep := "?"
			if strings.Contains(link, "?") {
				sep = "&"
			}
			link += sep + "marker=" + url.QueryEscape(c.marker)
		}
		offer.DeepLink = "https://www.aviasales.com" + link
	}
	return offer
}

func isDateSpanRejection(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range dateSpanErrorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// firstDatePart trims "2025-07-01T09:10:00-03:00" to its date.
func firstDatePart(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

func spanDays(from, to string) int {
	a, err1 := time.Parse("2006-01-02", from)
	b, err2 := time.Parse("2006-01-02", to)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

func formatMinutes(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatBRL renders a price the Brazilian way: R$ 1.234,56 (whole amounts
// without cents).
func FormatBRL(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}

	cents := int64(v*100 + 0.5)
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	out := "R$ " + b.String()
	if frac > 0 {
		out += fmt.Sprintf(",%02d", frac)
	}
	if neg {
		out = "-" + out
	}
	return out
}
