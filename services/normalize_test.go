package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"São Paulo", "sao paulo"},
		{"sao  paulo", "sao paulo"},
		{"  Maceió ", "maceio"},
		{"Fernando de Noronha!", "fernando de noronha"},
		{"Jericoacoara - CE", "jericoacoara ce"},
		{"São João del-Rei", "sao joao del rei"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	inputs := []string{"São Paulo", "Búzios, RJ", "MACEIÓ/AL", "Foz do Iguaçu"}
	for _, in := range inputs {
		once := NormalizeKey(in)
		assert.Equal(t, once, NormalizeKey(once), "input %q", in)
	}
}

func TestNormalizeKeyAccentInsensitive(t *testing.T) {
	assert.Equal(t, NormalizeKey("São Paulo"), NormalizeKey("sao  paulo"))
	assert.Equal(t, NormalizeKey("Maceió"), NormalizeKey("maceio"))
}
