package classifier

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Detected document types.
const (
	TypeInvoice        = "invoice"
	TypeContract       = "contract"
	TypeCertificate    = "certificate"
	TypeCorrespondence = "correspondence"
	TypeTax            = "tax"
	TypeMedical        = "medical"
	TypeIDDocument     = "id_document"
	TypeOther          = "other"
)

// Result is the normalized classification payload shared by all providers.
type Result struct {
	DocumentType       string        `json:"document_type"`
	SubType            string        `json:"sub_type"`
	Language           string        `json:"language"`
	Confidence         float64       `json:"confidence"`
	ExtractedData      ExtractedData `json:"extracted_data"`
	SuggestedTags      []string      `json:"suggested_tags"`
	Sensitivity        string        `json:"sensitivity"`
	RetentionYearsHint FlexInt       `json:"retention_years"`
	Error              string        `json:"error,omitempty"`
	RawResponse        string        `json:"raw_response,omitempty"`
}

// Failed reports whether the result carries an error marker instead of
// a usable classification.
func (r *Result) Failed() bool {
	return r == nil || r.Error != ""
}

// ExtractedData holds structured fields pulled out of the document.
// Amount is flexible because models return both numbers and strings,
// sometimes with a comma decimal separator.
type ExtractedData struct {
	VendorName string     `json:"vendor_name"`
	Amount     FlexAmount `json:"amount"`
	Currency   string     `json:"currency"`
	Date       string     `json:"date"`
	Reference  string     `json:"reference"`
}

// ParsedDate interprets the extracted date as YYYY-MM-DD.
func (d ExtractedData) ParsedDate() (*time.Time, bool) {
	if d.Date == "" {
		return nil, false
	}
	t, err := time.Parse("2006-01-02", d.Date)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// FlexAmount accepts a JSON number or a string representation. A comma
// decimal separator is normalized to a period before parsing; an
// unparsable string yields no value rather than an error.
type FlexAmount struct {
	Value float64
	Valid bool
}

func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		a.Value = num
		a.Valid = true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return nil
	}

	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	a.Value = num
	a.Valid = true
	return nil
}

func (a FlexAmount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// FlexInt accepts a JSON number or numeric string, tolerating prose
// like "10 years" by reading the leading digits.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		*i = FlexInt(num)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}

	digits := strings.TrimSpace(s)
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}

	parsed, err := strconv.Atoi(digits[:end])
	if err != nil {
		return nil
	}
	*i = FlexInt(parsed)
	return nil
}
