package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"roteirize/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoteiroRequest is the trip the user described. Budget fields accept
// numbers or pt-BR formatted strings ("R$ 5.500", "5,5 mil").
type RoteiroRequest struct {
	Destino            string              `json:"destino" binding:"required"`
	Origem             string              `json:"origem"`
	Dias               int                 `json:"dias"`
	Pessoas            int                 `json:"pessoas"`
	Orcamento          services.FlexAmount `json:"orcamento"`
	OrcamentoPorPessoa services.FlexAmount `json:"orcamento_por_pessoa"`
	DataIda            string              `json:"data_ida"`
	DataVolta          string              `json:"data_volta"`
	Email              string              `json:"email"`
	Formato            string              `json:"formato"` // "" | "json" | "pdf"
}

type RoteiroResponse struct {
	ID        string                   `json:"id"`
	Destino   services.DestinationMeta `json:"destino"`
	Dias      int                      `json:"dias"`
	Pessoas   int                      `json:"pessoas"`
	Orcamento services.BudgetSpec      `json:"orcamento"`
	Cambio    services.FxQuote         `json:"cambio"`
	Voos      *services.FlightResult   `json:"voos"`
	HTML      string                   `json:"html"`
	Email     *services.EmailResult    `json:"email,omitempty"`
}

// Roteiro bundles the pipeline dependencies behind one handler.
type Roteiro struct {
	Classifier services.Classifier
	Narrative  services.NarrativeGenerator
	Iata       *services.IataResolver
	Fx         *services.FxResolver
	Flights    *services.FlightClient
	Mailer     *services.Mailer
	Logger     *zap.Logger
}

const flightResultLimit = 10

// aiCallTimeout bounds the Gemini calls; the HTTP-based clients carry their
// own client timeouts.
const aiCallTimeout = 25 * time.Second

// Handle runs the full request pipeline: budget reconciliation, destination
// classification, FX, IATA resolution, flight search, narrative generation,
// assembly and optional e-mail. Every step after classification degrades to
// a partial result instead of failing the request.
func (h *Roteiro) Handle(c *gin.Context) {
	var req RoteiroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida: " + err.Error()})
		return
	}

	if h.Classifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Serviço de IA não configurado"})
		return
	}

	if req.Dias <= 0 {
		req.Dias = deriveDays(req.DataIda, req.DataVolta)
	}
	if req.Pessoas <= 0 {
		req.Pessoas = 1
	}

	requestID := uuid.New().String()
	logger := h.Logger.With(zap.String("request_id", requestID), zap.String("destino", req.Destino))
	ctx := c.Request.Context()

	budget := services.ReconcileBudget(req.Orcamento.Value, req.OrcamentoPorPessoa.Value, req.Pessoas)

	// Destination metadata is the one step nothing can proceed without.
	classifyCtx, cancelClassify := context.WithTimeout(ctx, aiCallTimeout)
	meta, err := h.Classifier.Classify(classifyCtx, req.Destino)
	cancelClassify()
	if err != nil {
		logger.Error("destination classification failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Não foi possível identificar o destino informado"})
		return
	}
	logger.Info("destination classified",
		zap.String("tipo", meta.RegionType), zap.String("moeda", meta.CurrencyCode))

	fx := h.Fx.GetRate(ctx, meta.CurrencyCode)
	logger.Info("fx resolved", zap.Float64("rate", fx.Rate), zap.String("provider", fx.Provider))

	voos := h.searchFlights(ctx, logger, req, meta)

	narrativeCtx, cancelNarrative := context.WithTimeout(ctx, aiCallTimeout)
	narrative, err := h.Narrative.Generate(narrativeCtx, services.NarrativeInput{
		Destination: req.Destino,
		Meta:        meta,
		Days:        req.Dias,
		People:      req.Pessoas,
		Budget:      budget,
		Fx:          fx,
	})
	cancelNarrative()
	if err != nil {
		logger.Warn("narrative generation failed, using fallback text", zap.Error(err))
		narrative = services.FallbackNarrative(req.Destino, req.Dias)
	}

	html := services.AssembleItinerary(meta, req.Dias, req.Pessoas, budget, fx, narrative)

	if strings.EqualFold(req.Formato, "pdf") {
		pdfBytes, err := services.GeneratePDFBytes(services.PDFData{
			Meta:          meta,
			Days:          req.Dias,
			People:        req.Pessoas,
			Budget:        budget,
			Fx:            fx,
			Flights:       voos,
			NarrativeHTML: narrative,
		})
		if err != nil {
			logger.Error("PDF generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao gerar o PDF"})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=roteiro.pdf")
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "application/pdf", pdfBytes)
		return
	}

	resp := RoteiroResponse{
		ID:        requestID,
		Destino:   meta,
		Dias:      req.Dias,
		Pessoas:   req.Pessoas,
		Orcamento: budget,
		Cambio:    fx,
		Voos:      voos,
		HTML:      html,
	}

	if req.Email != "" {
		result := h.Mailer.Send(req.Email, "Seu roteiro de viagem: "+req.Destino, html)
		resp.Email = &result
	}

	c.JSON(http.StatusOK, resp)
}

// searchFlights resolves both endpoints and queries prices. An unresolved
// code means the flight section is skipped with an explanatory error object,
// never a request failure.
func (h *Roteiro) searchFlights(ctx context.Context, logger *zap.Logger, req RoteiroRequest, meta services.DestinationMeta) *services.FlightResult {
	if req.Origem == "" || req.DataIda == "" {
		return &services.FlightResult{Error: &services.FlightError{
			Code:    "missing_params",
			Message: "informe origem e data de ida para buscar passagens",
		}}
	}

	origin := h.Iata.Resolve(ctx, req.Origem)
	destTerm := req.Destino
	if meta.NormalizedName != "" {
		destTerm = meta.NormalizedName
	}
	destination := h.Iata.Resolve(ctx, destTerm)
	logger.Info("iata resolved", zap.String("origin", origin), zap.String("destination", destination))

	if origin == "" || destination == "" {
		return &services.FlightResult{Error: &services.FlightError{
			Code:    "unresolved_location",
			Message: "não foi possível identificar os aeroportos de origem ou destino",
		}}
	}

	return h.Flights.Search(ctx, origin, destination, req.DataIda, req.DataVolta, flightResultLimit)
}

func deriveDays(from, to string) int {
	a, err1 := time.Parse("2006-01-02", from)
	b, err2 := time.Parse("2006-01-02", to)
	if err1 != nil || err2 != nil || !b.After(a) {
		return 5
	}
	return int(b.Sub(a).Hours()/24) + 1
}
