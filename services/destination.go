package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DestinationMeta is the classifier's view of a destination: what kind of
// place it is and which currency is spent there. Produced once per request
// and treated as immutable afterwards.
type DestinationMeta struct {
	NormalizedName string `json:"nome"`
	RegionType     string `json:"tipo"` // country, state, city, region
	CountryName    string `json:"pais"`
	CountryCode    string `json:"sigla_pais"`
	CurrencyCode   string `json:"moeda"`
	CurrencyName   string `json:"nome_moeda"`
}

// Classifier resolves free-text destinations into DestinationMeta. The
// Gemini implementation below is the production one; tests stub this.
type Classifier interface {
	Classify(ctx context.Context, destination string) (DestinationMeta, error)
}

// GeminiClassifier asks Gemini for destination metadata in JSON mode.
type GeminiClassifier struct {
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewGeminiClient builds the shared genai client. Both the classifier and
// the narrative generator hang off it.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not configured")
	}
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

func NewGeminiClassifier(client *genai.Client, modelName string, logger *zap.Logger) *GeminiClassifier {
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	return &GeminiClassifier{model: model, logger: logger}
}

const classifyPrompt = `Você é um classificador de destinos de viagem. Para o destino "%s", responda APENAS com um objeto JSON neste formato:
{"nome": "nome normalizado do destino", "tipo": "country|state|city|region", "pais": "nome do país", "sigla_pais": "código ISO de 2 letras", "moeda": "código ISO 4217 da moeda local", "nome_moeda": "nome da moeda em português"}`

// Classify returns metadata for the destination. A malformed model response
// degrades to a conservative default so the pipeline can continue; only a
// transport-level failure is returned as an error.
func (g *GeminiClassifier) Classify(ctx context.Context, destination string) (DestinationMeta, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(fmt.Sprintf(classifyPrompt, destination)))
	if err != nil {
		return DestinationMeta{}, fmt.Errorf("gemini classify error: %w", err)
	}

	text := collectText(resp)
	meta, err := parseDestinationMeta(text)
	if err != nil {
		g.logger.Warn("classifier returned unparseable metadata, using default",
			zap.String("destination", destination), zap.Error(err))
		return DefaultDestinationMeta(destination), nil
	}
	return meta, nil
}

func parseDestinationMeta(text string) (DestinationMeta, error) {
	text = strings.TrimSpace(text)

	// Models occasionally wrap JSON in markdown fences despite JSON mode.
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			text = text[i : j+1]
		}
	}

	var meta DestinationMeta
	if err := json.Unmarshal([]byte(text), &meta); err != nil {
		return DestinationMeta{}, err
	}
	if meta.CurrencyCode == "" {
		return DestinationMeta{}, fmt.Errorf("metadata missing currency code")
	}
	meta.CurrencyCode = strings.ToUpper(meta.CurrencyCode)
	if meta.RegionType == "" {
		meta.RegionType = "city"
	}
	return meta, nil
}

// DefaultDestinationMeta is the conservative fallback when the classifier
// answer cannot be used: assume an international city priced in dollars.
func DefaultDestinationMeta(destination string) DestinationMeta {
	return DestinationMeta{
		NormalizedName: strings.TrimSpace(destination),
		RegionType:     "city",
		CountryName:    "Desconhecido",
		CountryCode:    "",
		CurrencyCode:   "USD",
		CurrencyName:   "Dólar americano",
	}
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String()
}
