package services

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// roteiroWrapperRegex matches the outer container div the narrative model is
// prompted not to emit but sometimes does anyway. Only one level is
// unwrapped; anything deeper is the narrative's own structure.
var roteiroWrapperRegex = regexp.MustCompile(`(?is)^\s*<div[^>]*class="[^"]*roteiro[^"]*"[^>]*>(.*)</div>\s*$`)

// AssembleItinerary concatenates the deterministic summary block with the
// externally generated narrative HTML. The narrative's factual content is
// out of scope here; only its redundant outer wrapper is flattened.
func AssembleItinerary(meta DestinationMeta, days, people int, budget BudgetSpec, fx FxQuote, narrativeHTML string) string {
	var sb strings.Builder

	sb.WriteString(`<div class="roteiro">`)
	sb.WriteString(summaryTable(meta, days, people, budget, fx))
	sb.WriteString(UnwrapNarrative(narrativeHTML))
	sb.WriteString(`</div>`)

	return sb.String()
}

// UnwrapNarrative strips a single redundant <div class="roteiro"> wrapper so
// the assembled document does not nest duplicate containers.
func UnwrapNarrative(narrative string) string {
	if m := roteiroWrapperRegex.FindStringSubmatch(narrative); len(m) > 1 {
		return m[1]
	}
	return narrative
}

func summaryTable(meta DestinationMeta, days, people int, budget BudgetSpec, fx FxQuote) string {
	var sb strings.Builder

	sb.WriteString(`<table class="resumo">`)
	row := func(label, value string) {
		fmt.Fprintf(&sb, "<tr><th>%s</th><td>%s</td></tr>", html.EscapeString(label), html.EscapeString(value))
	}

	row("Destino", meta.NormalizedName)
	if meta.CountryName != "" && meta.CountryName != "Desconhecido" {
		row("País", meta.CountryName)
	}
	row("Pessoas", fmt.Sprintf("%d", people))
	row("Dias", fmt.Sprintf("%d", days))

	if budget.Total != nil {
		row("Orçamento total", moneyPair(*budget.Total, meta, fx))
	}
	if budget.PerPerson != nil {
		row("Orçamento por pessoa", moneyPair(*budget.PerPerson, meta, fx))
	}

	if meta.CurrencyCode != "" && meta.CurrencyCode != "BRL" {
		if fx.Rate > 0 {
			row("Câmbio", fmt.Sprintf("1 BRL = %.4f %s (%s, %s)",
				fx.Rate, meta.CurrencyCode, fx.Provider, fx.AsOfDate))
		} else {
			row("Câmbio", fmt.Sprintf("cotação de %s indisponível", meta.CurrencyCode))
		}
	}

	sb.WriteString(`</table>`)
	return sb.String()
}

// moneyPair renders an amount in BRL and, when a usable rate exists, its
// local-currency equivalent. Rate 0 means "unavailable" and must never be
// used for conversion.
func moneyPair(amountBRL float64, meta DestinationMeta, fx FxQuote) string {
	base := FormatBRL(amountBRL)
	if meta.CurrencyCode == "" || meta.CurrencyCode == "BRL" || fx.Rate <= 0 {
		return base
	}
	return fmt.Sprintf("%s (≈ %.2f %s)", base, amountBRL*fx.Rate, meta.CurrencyCode)
}
