package llm

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnswer = `{
  "metadata": {
    "deutscher_titel": "Der Steppenwolf",
    "autor": "Hermann Hesse",
    "isbn": "9783518366752",
    "erscheinungsjahr": "1974",
    "seitenanzahl": 288,
    "sprache": "Deutsch",
    "genre": null
  },
  "physical_properties": {
    "dimensions": {"length": 18, "width": 11.5, "height": null, "measurement_method": "Zollstock im Bild"}
  },
  "condition_analysis": {
    "zustand_beschreibung": "Leichte Gebrauchsspuren",
    "maengel_besonderheiten": ["Knick im Cover", "Name auf Vorsatz"],
    "zustand_einschätzung": "Gut",
    "confidence_score": 0.8
  },
  "market_data": {
    "preisanalyse": {"empfehlung": {"verkaufspreis": {"optimal": "8-12 EUR", "schnellverkauf": "5-7 EUR"}}},
    "confidence_score": 0.6
  },
  "additional_info": {"inhaltszusammenfassung": "Harry Haller...", "confidence_score": 0.9}
}`

func TestParseResponseFenced(t *testing.T) {
	text := "Hier ist die Analyse:\n```json\n" + sampleAnswer + "\n```\nViel Erfolg!"

	res, err := ParseResponse(text)
	require.NoError(t, err)

	assert.Equal(t, Text("Der Steppenwolf"), res.Metadata.GermanTitle)
	assert.Equal(t, Text("Hermann Hesse"), res.Metadata.Author)
	assert.Equal(t, 1974, *res.Metadata.Year.IntPtr())
	assert.Equal(t, 288, *res.Metadata.PageCount.IntPtr())
	assert.Empty(t, res.Metadata.Genre)
	assert.Equal(t, 11.5, res.PhysicalProperties.Dimensions.Width.Value)
	assert.False(t, res.PhysicalProperties.Dimensions.Height.Valid)
	assert.Equal(t, Text("Knick im Cover; Name auf Vorsatz"), res.ConditionAnalysis.Defects)
	assert.Equal(t, Text("8-12 EUR"), res.MarketData.PriceAnalysis.Recommendation.SalePrice.Optimal)
	assert.Equal(t, 0.6, res.MarketData.ConfidenceScore.Value)
	assert.JSONEq(t, sampleAnswer, string(res.Raw))
	assert.Empty(t, res.ErrorLog)
}

func TestParseResponseBraceScan(t *testing.T) {
	text := `Analyse: {"metadata": {"deutscher_titel": "Momo"}} Ende.`

	res, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, Text("Momo"), res.Metadata.GermanTitle)
}

func TestParseResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no braces", "Ich konnte das Buch nicht erkennen."},
		{"empty", ""},
		{"invalid fenced block", "```json\n{\"metadata\": {,}}\n```"},
		{"invalid brace scan", "vorher {nicht json} nachher"},
		{"reversed braces", "} und {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseResponse(tt.text)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestParseResponseFencedTakesPrecedence(t *testing.T) {
	// The brace scan over the whole text would span both objects and fail.
	text := "```json\n{\"metadata\": {\"autor\": \"Ende\"}}\n```\nund noch {\"x\": 1}"

	res, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, Text("Ende"), res.Metadata.Author)
}

func TestParseResponseBadGroupShape(t *testing.T) {
	res, err := ParseResponse(`{"metadata": "kaputt", "additional_info": {"zielgruppe": "Jugendliche"}}`)
	require.NoError(t, err)
	assert.Equal(t, Text("Jugendliche"), res.AdditionalInfo.Audience)
	require.Len(t, res.ErrorLog, 1)
	assert.Contains(t, res.ErrorLog[0], "metadata")
}

func TestEmptyResultJSON(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res := EmptyResult("Keine Bilder", now)
	require.True(t, res.Failed())

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"error": "Keine Bilder",
		"metadata": {},
		"condition_analysis": {},
		"market_data": {},
		"additional_info": {},
		"confidence_scores": {},
		"processing_timestamp": "2024-05-01T12:00:00Z"
	}`, string(b))
}

func TestAnalysisResultRoundTrip(t *testing.T) {
	res, err := ParseResponse(sampleAnswer)
	require.NoError(t, err)
	res.ValidationSources = map[string]json.RawMessage{"open_library": json.RawMessage(`{"title":"Steppenwolf"}`)}
	res.AddError("catalog timeout")

	b, err := json.Marshal(res)
	require.NoError(t, err)

	var back AnalysisResult
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, res.Metadata, back.Metadata)
	assert.JSONEq(t, `{"title":"Steppenwolf"}`, string(back.ValidationSources["open_library"]))
	assert.Equal(t, []string{"catalog timeout"}, back.ErrorLog)
}

func TestCalculateGeminiCost(t *testing.T) {
	cost := calculateGeminiCost(1_000_000, 500_000, 1.25, 10.0)
	assert.InDelta(t, 6.25, cost, 1e-9)
}
