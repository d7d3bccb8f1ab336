package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlank(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"nan", true},
		{"NaN", true},
		{"0", false},
		{"hola", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Blank(tt.in), "Blank(%q)", tt.in)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"x", true},
		{"si", true},
		{"OK", true},
		{"", false},
		{"0", false},
		{"nan", false},
		{"NAN", false},
		{"false", false},
		{"False", false},
		{"no", false},
		{"NO", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truthy(tt.in), "Truthy(%q)", tt.in)
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"'1155667788", "1155667788"},
		{"''011-4321", "011-4321"},
		{" 1155667788 ", "1155667788"},
		{"", ""},
		{"nan", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Phone(tt.in), "Phone(%q)", tt.in)
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"18/02/1985", "1985-02-18"},
		{"22-07-1962", "1962-07-22"},
		{"1990-08-06", "1990-08-06"},
		{"20 08 1961", "1961-08-20"},
		{"31 de Marzo de 1995", "1995-03-31"},
		{"12 Enero 1988", "1988-01-12"},
	}
	for _, tt := range tests {
		got, ok := Date(tt.in)
		require.True(t, ok, "Date(%q)", tt.in)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), "Date(%q)", tt.in)
	}
}

func TestDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "nan", "no recuerdo", "99/99/9999"} {
		got, ok := Date(in)
		assert.False(t, ok, "Date(%q)", in)
		assert.Equal(t, time.Time{}, got)
	}
}

func TestYearsExperience(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"5", 5},
		{"3 años", 3},
		{"2 anios aprox", 2},
		{"18 meses", 1},
		{"6 meses", 0},
		{"dos años", 2},
		{"un año", 1},
		{"menos de un año", 0},
		{"", 0},
		{"nan", 0},
		{"no sé", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, YearsExperience(tt.in), "YearsExperience(%q)", tt.in)
	}
}

func TestEquipmentCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"dos", 2},
		{"2 de fábrica y 1 que armé yo", 3},
		{"tengo una impresora", 1},
		{"", 1},
		{"varias", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EquipmentCount(tt.in), "EquipmentCount(%q)", tt.in)
	}
}

func TestOrderNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"1234", 1234, true},
		{"1234,0", 1234, true},
		{"1234.0", 1234, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := OrderNumber(tt.in)
		assert.Equal(t, tt.wantOK, ok, "OrderNumber(%q) ok", tt.in)
		assert.Equal(t, tt.want, got, "OrderNumber(%q)", tt.in)
	}
}
