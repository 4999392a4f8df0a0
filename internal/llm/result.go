package llm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Number is a JSON number that models sometimes send as a numeric string or
// null. Values that are neither decode as invalid instead of failing.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Number{Value: v, Valid: true}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value or nil when unknown.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// IntPtr returns the value truncated to an int, or nil when unknown.
func (n Number) IntPtr() *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Value)
	return &v
}

// Text is a string field that tolerates null, numbers and string arrays.
// Arrays are joined with "; ".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*t = Text(s)
		}
	case '[':
		var items []Text
		if err := json.Unmarshal(b, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if it != "" {
					parts = append(parts, string(it))
				}
			}
			*t = Text(strings.Join(parts, "; "))
		}
	case '{':
		// Objects are not text.
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return string(t) }

type Metadata struct {
	GermanTitle   Text   `json:"deutscher_titel"`
	OriginalTitle Text   `json:"originaltitel"`
	Author        Text   `json:"autor"`
	ISBN          Text   `json:"isbn"`
	Publisher     Text   `json:"verlag"`
	Year          Number `json:"erscheinungsjahr"`
	Edition       Text   `json:"auflage"`
	Format        Text   `json:"format"`
	PageCount     Number `json:"seitenanzahl"`
	Language      Text   `json:"sprache"`
	Genre         Text   `json:"genre"`
}

type Dimensions struct {
	Length                Number `json:"length"`
	Width                 Number `json:"width"`
	Height                Number `json:"height"`
	MeasurementConfidence Number `json:"measurement_confidence"`
	MeasurementMethod     Text   `json:"measurement_method"`
	Notes                 Text   `json:"notes"`
}

type PhysicalProperties struct {
	Dimensions Dimensions `json:"dimensions"`
}

type ConditionAnalysis struct {
	Description     Text   `json:"zustand_beschreibung"`
	Defects         Text   `json:"maengel_besonderheiten"`
	Assessment      Text   `json:"zustand_einschätzung"`
	ConfidenceScore Number `json:"confidence_score"`
}

type Offer struct {
	Price            Text   `json:"preis"`
	Condition        Text   `json:"zustand"`
	ConditionDetails Text   `json:"zustand_details"`
	Seller           Text   `json:"anbieter"`
	Platform         Text   `json:"plattform"`
	Link             Text   `json:"link"`
	Edition          Text   `json:"auflage"`
	Year             Number `json:"erscheinungsjahr"`
	Features         Text   `json:"besonderheiten"`
}

type Comparables struct {
	CurrentEdition []Offer          `json:"aktuelle_auflage"`
	OtherEditions  []Offer          `json:"andere_auflagen"`
	NoEdition      []Offer          `json:"ohne_auflage"`
	Statistics     *json.RawMessage `json:"statistik,omitempty"`
}

type SalePrice struct {
	Optimal   Text `json:"optimal"`
	QuickSale Text `json:"schnellverkauf"`
}

type Recommendation struct {
	SalePrice SalePrice        `json:"verkaufspreis"`
	Reasoning *json.RawMessage `json:"begruendung,omitempty"`
	Strategy  *json.RawMessage `json:"verkaufsstrategie,omitempty"`
}

type ConditionPrice struct {
	Price  Text `json:"preis"`
	Market Text `json:"marktlage"`
}

type PriceAnalysis struct {
	Recommendation  Recommendation            `json:"empfehlung"`
	ConditionPrices map[string]ConditionPrice `json:"zustandsbasierte_preise,omitempty"`
	Comparison      *json.RawMessage          `json:"preisvergleich,omitempty"`
}

type NewPrice struct {
	Price  Text `json:"preis"`
	Source Text `json:"quelle"`
}

type MarketData struct {
	NewPrice      NewPrice         `json:"neupreis"`
	Comparables   Comparables      `json:"vergleichsangebote"`
	PriceAnalysis PriceAnalysis    `json:"preisanalyse"`
	MarketReport  *json.RawMessage `json:"marktanalyse,omitempty"`
	// RecommendedPrice is the flat recommendation older prompts asked for.
	RecommendedPrice Text   `json:"empfohlener_verkaufspreis"`
	ConfidenceScore  Number `json:"confidence_score"`
}

type AdditionalInfo struct {
	Summary         Text   `json:"inhaltszusammenfassung"`
	Audience        Text   `json:"zielgruppe"`
	Features        Text   `json:"besonderheiten"`
	Awards          Text   `json:"auszeichnungen"`
	Collectability  Text   `json:"sammlungsrelevanz"`
	ConfidenceScore Number `json:"confidence_score"`
}

// AnalysisResult is the structured answer of one book analysis.
type AnalysisResult struct {
	Metadata           Metadata
	PhysicalProperties PhysicalProperties
	ConditionAnalysis  ConditionAnalysis
	MarketData         MarketData
	AdditionalInfo     AdditionalInfo

	// ValidationSources holds catalog data keyed by source, e.g. "open_library".
	ValidationSources map[string]json.RawMessage
	// Error is set when the analysis failed; the result is then an envelope
	// with empty groups.
	Error               string
	ErrorLog            []string
	ProcessingTimestamp time.Time

	// Raw is the decoded model object verbatim.
	Raw   json.RawMessage
	Usage Usage
}

// Failed reports whether the result is an error envelope.
func (r *AnalysisResult) Failed() bool {
	return r.Error != ""
}

// AddError appends a message to the error log.
func (r *AnalysisResult) AddError(msg string) {
	r.ErrorLog = append(r.ErrorLog, msg)
}

// EmptyResult returns the error envelope for a failed analysis.
func EmptyResult(errMsg string, now time.Time) *AnalysisResult {
	return &AnalysisResult{
		Error:               errMsg,
		ProcessingTimestamp: now.UTC(),
	}
}

// MarshalJSON renders the model object verbatim with the enrichment and
// bookkeeping fields set on top of it. An envelope renders every group as an
// empty object.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if len(r.Raw) > 0 {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(r.Raw, &raw); err == nil {
			for k, v := range raw {
				out[k] = v
			}
		}
	}
	if r.Failed() {
		for _, k := range []string{"metadata", "condition_analysis", "market_data", "additional_info", "confidence_scores"} {
			if _, ok := out[k]; !ok {
				out[k] = struct{}{}
			}
		}
		out["error"] = r.Error
	}
	if len(r.ValidationSources) > 0 {
		out["validation_sources"] = r.ValidationSources
	}
	if len(r.ErrorLog) > 0 {
		out["error_log"] = r.ErrorLog
	}
	if !r.ProcessingTimestamp.IsZero() {
		out["processing_timestamp"] = r.ProcessingTimestamp.Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts objects previously produced by MarshalJSON.
func (r *AnalysisResult) UnmarshalJSON(b []byte) error {
	parsed, err := decodeObject(b)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}
