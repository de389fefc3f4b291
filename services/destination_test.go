package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDestinationMeta(t *testing.T) {
	meta, err := parseDestinationMeta(`{"nome":"Maragogi","tipo":"city","pais":"Brasil","sigla_pais":"BR","moeda":"brl","nome_moeda":"Real"}`)
	require.NoError(t, err)
	assert.Equal(t, "Maragogi", meta.NormalizedName)
	assert.Equal(t, "BRL", meta.CurrencyCode, "currency code must be upper-cased")
	assert.Equal(t, "city", meta.RegionType)
}

func TestParseDestinationMetaFencedJSON(t *testing.T) {
	raw := "```json\n{\"nome\":\"Lisboa\",\"tipo\":\"city\",\"pais\":\"Portugal\",\"sigla_pais\":\"PT\",\"moeda\":\"EUR\",\"nome_moeda\":\"Euro\"}\n```"
	meta, err := parseDestinationMeta(raw)
	require.NoError(t, err)
	assert.Equal(t, "EUR", meta.CurrencyCode)
}

func TestParseDestinationMetaRejectsGarbage(t *testing.T) {
	_, err := parseDestinationMeta("o destino é lindo!")
	assert.Error(t, err)

	_, err = parseDestinationMeta(`{"nome":"X"}`)
	assert.Error(t, err, "metadata without a currency code is unusable")
}

func TestDefaultDestinationMeta(t *testing.T) {
	meta := DefaultDestinationMeta("  Algum Lugar  ")
	assert.Equal(t, "Algum Lugar", meta.NormalizedName)
	assert.Equal(t, "USD", meta.CurrencyCode)
	assert.Equal(t, "city", meta.RegionType)
	assert.Equal(t, "Desconhecido", meta.CountryName)
}
