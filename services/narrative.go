package services

import (
	"context"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// NarrativeInput carries the resolved trip parameters the prompt is built
// from.
type NarrativeInput struct {
	Destination string
	Meta        DestinationMeta
	Days        int
	People      int
	Budget      BudgetSpec
	Fx          FxQuote
}

// NarrativeGenerator produces the free-form itinerary HTML. The assembler
// only unwraps its outer container; the content itself is not interpreted.
type NarrativeGenerator interface {
	Generate(ctx context.Context, in NarrativeInput) (string, error)
}

// GeminiNarrative generates the day-by-day itinerary prose with Gemini.
type GeminiNarrative struct {
	model  *genai.GenerativeModel
	logger *zap.Logger
}

func NewGeminiNarrative(client *genai.Client, modelName string, logger *zap.Logger) *GeminiNarrative {
	return &GeminiNarrative{model: client.GenerativeModel(modelName), logger: logger}
}

func (g *GeminiNarrative) Generate(ctx context.Context, in NarrativeInput) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildNarrativePrompt(in)))
	if err != nil {
		return "", fmt.Errorf("gemini narrative error: %w", err)
	}

	text := strings.TrimSpace(collectText(resp))
	if text == "" {
		return "", fmt.Errorf("empty narrative from model")
	}
	return text, nil
}

func buildNarrativePrompt(in NarrativeInput) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Você é um agente de viagens brasileiro. Monte um roteiro de %d dias em %s para %d pessoa(s).\n",
		in.Days, in.Destination, in.People)

	if in.Budget.Total != nil {
		fmt.Fprintf(&sb, "Orçamento total: %s", FormatBRL(*in.Budget.Total))
		if in.Budget.PerPerson != nil {
			fmt.Fprintf(&sb, " (%s por pessoa)", FormatBRL(*in.Budget.PerPerson))
		}
		sb.WriteString(".\n")
	}

	if in.Meta.CurrencyCode != "" && in.Meta.CurrencyCode != "BRL" {
		fmt.Fprintf(&sb, "A moeda local é %s (%s).", in.Meta.CurrencyName, in.Meta.CurrencyCode)
		if in.Fx.Rate > 0 {
			fmt.Fprintf(&sb, " Cotação atual: 1 BRL = %.4f %s.", in.Fx.Rate, in.Meta.CurrencyCode)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`
Responda com um fragmento HTML (sem <html> nem <body>): um <h2> por dia,
listas <ul> com atrações, restaurantes com faixa de preço, dica de
deslocamento e uma estimativa de gasto diário. Seja específico ao destino.`)

	return sb.String()
}

// FallbackNarrative is the static text used when the model is unavailable,
// so the itinerary still renders with its deterministic summary.
func FallbackNarrative(destination string, days int) string {
	return fmt.Sprintf(
		"<p>Não foi possível gerar o roteiro detalhado de %d dias para %s neste momento. "+
			"Tente novamente em alguns minutos.</p>", days, destination)
}
