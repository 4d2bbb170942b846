package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCardinality(t *testing.T) {
	tests := []struct {
		tok  string
		want Cardinality
		ok   bool
	}{
		{"one", CardinalityOne, true},
		{"many", CardinalityMany, true},
		{"oneToMany", CardinalityOneToMany, true},
		{"manyToMany", CardinalityManyToMany, true},
		{"1", CardinalityOne, true},
		{"*", CardinalityMany, true},
		{"ONE", "", false},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCardinality(tt.tok)
		assert.Equal(t, tt.ok, ok, "token %q", tt.tok)
		assert.Equal(t, tt.want, got, "token %q", tt.tok)
	}
}

func TestParseCrossFilter(t *testing.T) {
	tests := []struct {
		tok  string
		want CrossFilter
		ok   bool
	}{
		{"singleDirection", FilterSingleDirection, true},
		{"bothDirections", FilterBothDirections, true},
		{"<", FilterSingleDirection, true},
		{"<>", FilterBothDirections, true},
		{"both", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCrossFilter(tt.tok)
		assert.Equal(t, tt.ok, ok, "token %q", tt.tok)
		assert.Equal(t, tt.want, got, "token %q", tt.tok)
	}
}

func TestParseActive(t *testing.T) {
	tests := []struct {
		tok    string
		want   bool
		parsed bool
	}{
		{"true", true, true},
		{"false", false, true},
		{"+", true, true},
		{"-", false, true},
		{"yes", false, false},
	}
	for _, tt := range tests {
		got, ok := ParseActive(tt.tok)
		assert.Equal(t, tt.parsed, ok, "token %q", tt.tok)
		assert.Equal(t, tt.want, got, "token %q", tt.tok)
	}
}

func TestFilterCardinalitySymbols(t *testing.T) {
	tests := []struct {
		name      string
		filtering CrossFilter
		to, from  Cardinality
		filter    string
		fromSym   string
		toSym     string
	}{
		{
			name:      "single direction defaults",
			filtering: FilterSingleDirection,
			to:        "", from: "",
			filter: "<", fromSym: "*", toSym: "1",
		},
		{
			name:      "single direction one to many",
			filtering: FilterSingleDirection,
			to:        CardinalityOneToMany, from: CardinalityOneToMany,
			filter: "<", fromSym: "*", toSym: "1",
		},
		{
			name:      "single direction many to many",
			filtering: FilterSingleDirection,
			to:        CardinalityMany, from: CardinalityMany,
			filter: "<", fromSym: "*", toSym: "*",
		},
		{
			name:      "single direction explicit one endpoint",
			filtering: FilterSingleDirection,
			to:        CardinalityOne, from: CardinalityMany,
			filter: "<", fromSym: "*", toSym: "*",
		},
		{
			name:      "both directions defaults",
			filtering: FilterBothDirections,
			to:        "", from: "",
			filter: "<>", fromSym: "*", toSym: "1",
		},
		{
			name:      "both directions with one endpoint",
			filtering: FilterBothDirections,
			to:        CardinalityOne, from: CardinalityMany,
			filter: "<>", fromSym: "1", toSym: "1",
		},
		{
			name:      "both directions one to many",
			filtering: FilterBothDirections,
			to:        CardinalityOneToMany, from: CardinalityMany,
			filter: "<>", fromSym: "*", toSym: "1",
		},
		{
			name:      "both directions many both ends",
			filtering: FilterBothDirections,
			to:        CardinalityMany, from: CardinalityMany,
			filter: "<>", fromSym: "*", toSym: "*",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, fromSym, toSym := FilterCardinalitySymbols(tt.filtering, tt.to, tt.from)
			assert.Equal(t, tt.filter, filter)
			assert.Equal(t, tt.fromSym, fromSym)
			assert.Equal(t, tt.toSym, toSym)
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityError < SeverityWarning)
	assert.True(t, SeverityWarning < SeverityInfo)
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "info", SeverityInfo.String())
}

func TestParseSeverity(t *testing.T) {
	s, ok := ParseSeverity("Error")
	assert.True(t, ok)
	assert.Equal(t, SeverityError, s)

	_, ok = ParseSeverity("fatal")
	assert.False(t, ok)
}
