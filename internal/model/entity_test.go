package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCNPJ(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00000000000191", CleanCNPJ("00.000.000/0001-91"))
	assert.Equal(t, "00000000000191", CleanCNPJ("00000000000191"))
	assert.Equal(t, "", CleanCNPJ(""))
	assert.Equal(t, "123", CleanCNPJ("1a2b3c"))
}

func TestValidCNPJ(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidCNPJ("33000167000101"))
	assert.False(t, ValidCNPJ("33.000.167/0001-01"))
	assert.False(t, ValidCNPJ("3300016700010"))
	assert.False(t, ValidCNPJ(""))
	assert.False(t, ValidCNPJ("3300016700010a"))
}

func TestRadicalOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "33000167", RadicalOf("33000167000101"))
	assert.Equal(t, "", RadicalOf("123"))
	assert.Equal(t, "", RadicalOf(""))
}

func TestFindCNPJ(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "33000167000101", FindCNPJ("Petrobras CNPJ 33000167000101 matriz"))
	assert.Equal(t, "33000167000101", FindCNPJ("CNPJ: 33.000.167/0001-01 - Receita Federal"))
	assert.Equal(t, "", FindCNPJ("no identifier here"))
	assert.Equal(t, "", FindCNPJ(""))
}

func TestParseRevenue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"9000", 9000},
		{"9000.5", 9000.5},
		{"9.123,4", 9123.4},
		{"1.234.567,89", 1234567.89},
		{"123,4", 123.4},
		{"", 0},
		{"n/a", 0},
		{"  5001  ", 5001},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRevenue(tt.in), "input %q", tt.in)
	}
}

func TestEmptyExtraction(t *testing.T) {
	t.Parallel()

	r := EmptyExtraction()
	assert.NotNil(t, r.FoundBrands)
	assert.Empty(t, r.FoundBrands)
	assert.Empty(t, r.OfficialWebsite)
}
