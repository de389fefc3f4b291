package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFData is everything the printable itinerary needs. NarrativeHTML is
// flattened to plain text before rendering.
type PDFData struct {
	Meta          DestinationMeta
	Days          int
	People        int
	Budget        BudgetSpec
	Fx            FxQuote
	Flights       *FlightResult
	NarrativeHTML string
}

// GeneratePDFBytes renders the itinerary as a PDF and returns raw bytes.
func GeneratePDFBytes(data PDFData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// header bar
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(100, 10, "Roteirize", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(212, 168, 67)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, tr("Roteiro de viagem personalizado"), "", 1, "L", false, 0, "")

	pdf.SetY(35)
	pdf.SetTextColor(0, 0, 0)

	sectionHeader := func(title string) {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(170, 8, "  "+tr(title), "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(55, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(115, 7, tr(value), "", 1, "L", false, 0, "")
	}

	sectionHeader("Resumo da viagem")
	row("Destino", data.Meta.NormalizedName)
	if data.Meta.CountryName != "" && data.Meta.CountryName != "Desconhecido" {
		row("País", data.Meta.CountryName)
	}
	row("Pessoas", fmt.Sprintf("%d", data.People))
	row("Dias", fmt.Sprintf("%d", data.Days))
	// the cp1252 font set has no "≈"
	money := func(v float64) string {
		return strings.ReplaceAll(moneyPair(v, data.Meta, data.Fx), "≈", "~")
	}
	if data.Budget.Total != nil {
		row("Orçamento total", money(*data.Budget.Total))
	}
	if data.Budget.PerPerson != nil {
		row("Orçamento por pessoa", money(*data.Budget.PerPerson))
	}
	if data.Meta.CurrencyCode != "" && data.Meta.CurrencyCode != "BRL" {
		if data.Fx.Rate > 0 {
			row("Câmbio", fmt.Sprintf("1 BRL = %.4f %s (%s)", data.Fx.Rate, data.Meta.CurrencyCode, data.Fx.Provider))
		} else {
			row("Câmbio", "cotação indisponível")
		}
	}
	row("Gerado em", time.Now().Format("02/01/2006 15:04"))
	pdf.Ln(4)

	writeFlightSection(pdf, tr, sectionHeader, row, data.Flights)

	if data.NarrativeHTML != "" {
		sectionHeader("Roteiro")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(40, 40, 40)
		pdf.MultiCell(170, 5, tr(StripHTML(data.NarrativeHTML)), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetY(-22)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 8,
		tr("Gerado por Roteirize · Valores estimados, sujeitos a alteração · Não é uma confirmação de reserva"),
		"", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFlightSection(pdf *gofpdf.Fpdf, tr func(string) string, sectionHeader func(string), row func(string, string), flights *FlightResult) {
	if flights == nil {
		return
	}

	sectionHeader("Passagens aéreas")
	if flights.Error != nil {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(130, 90, 20)
		pdf.MultiCell(170, 5, tr(flights.Error.Message), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
		return
	}

	writeOffer := func(n int, o FlightOffer) {
		value := fmt.Sprintf("%s > %s - %s", o.From, o.To, o.PriceText)
		if o.Airline != "" {
			value += " - " + o.Airline
		}
		if o.DurationText != "" {
			value += " - " + o.DurationText
		}
		row(fmt.Sprintf("Opção %d", n), value)
	}

	switch {
	case len(flights.Items) > 0:
		for i, o := range flights.Items {
			if i >= 5 {
				break
			}
			writeOffer(i+1, o)
		}
	case len(flights.ItemsCombined) > 0:
		for i, cb := range flights.ItemsCombined {
			if i >= 5 {
				break
			}
			row(fmt.Sprintf("Opção %d", i+1),
				fmt.Sprintf("%s > %s > %s - %s", cb.Outbound.From, cb.Outbound.To, cb.Return.To, cb.PriceText))
		}
	default:
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(170, 5, tr("Nenhum voo encontrado para as datas informadas."), "", "L", false)
	}
	pdf.Ln(4)
}

var (
	htmlTagRegex  = regexp.MustCompile(`(?s)<[^>]+>`)
	blockEndRegex = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr|ul|ol|table)>|<br\s*/?>`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// StripHTML flattens an HTML fragment to readable plain text, keeping block
// boundaries as line breaks.
func StripHTML(s string) string {
	s = blockEndRegex.ReplaceAllString(s, "\n")
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = multiNewlines.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
