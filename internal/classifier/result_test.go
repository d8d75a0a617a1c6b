package classifier_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/JaimeStill/custodian/internal/classifier"
)

func TestFlexAmountUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValue float64
		wantValid bool
	}{
		{"number", `42.5`, 42.5, true},
		{"integer", `1200`, 1200, true},
		{"string number", `"42.50"`, 42.5, true},
		{"comma separator", `"1234,56"`, 1234.56, true},
		{"padded string", `"  99,90  "`, 99.90, true},
		{"empty string", `""`, 0, false},
		{"prose", `"about fifty euros"`, 0, false},
		{"null", `null`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a classifier.FlexAmount
			if err := json.Unmarshal([]byte(tt.input), &a); err != nil {
				t.Fatalf("Unmarshal(%s) err = %v, want lenient parse", tt.input, err)
			}
			if a.Valid != tt.wantValid {
				t.Errorf("Valid = %t, want %t", a.Valid, tt.wantValid)
			}
			if a.Valid && a.Value != tt.wantValue {
				t.Errorf("Value = %v, want %v", a.Value, tt.wantValue)
			}
		})
	}
}

func TestFlexAmountMarshal(t *testing.T) {
	valid, err := json.Marshal(classifier.FlexAmount{Value: 12.5, Valid: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(valid) != "12.5" {
		t.Errorf("Marshal(valid) = %s, want 12.5", valid)
	}

	invalid, err := json.Marshal(classifier.FlexAmount{})
	if err != nil {
		t.Fatal(err)
	}
	if string(invalid) != "null" {
		t.Errorf("Marshal(invalid) = %s, want null", invalid)
	}
}

func TestFlexIntUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"number", `10`, 10},
		{"string number", `"10"`, 10},
		{"leading digits", `"10 years"`, 10},
		{"padded", `"  6 Jahre"`, 6},
		{"no digits", `"forever"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var i classifier.FlexInt
			if err := json.Unmarshal([]byte(tt.input), &i); err != nil {
				t.Fatalf("Unmarshal(%s) err = %v, want lenient parse", tt.input, err)
			}
			if int(i) != tt.want {
				t.Errorf("FlexInt = %d, want %d", i, tt.want)
			}
		})
	}
}

func TestResultFailed(t *testing.T) {
	var nilResult *classifier.Result
	if !nilResult.Failed() {
		t.Error("nil result should report failed")
	}
	if !(&classifier.Result{Error: "unparsable model response"}).Failed() {
		t.Error("error marker should report failed")
	}
	if (&classifier.Result{DocumentType: classifier.TypeOther}).Failed() {
		t.Error("clean result should not report failed")
	}
}

func TestParsedDate(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		d := classifier.ExtractedData{Date: "2026-03-15"}
		got, ok := d.ParsedDate()
		if !ok {
			t.Fatal("ParsedDate() ok = false, want true")
		}
		want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("ParsedDate() = %v, want %v", got, want)
		}
	})

	t.Run("empty date", func(t *testing.T) {
		if _, ok := (classifier.ExtractedData{}).ParsedDate(); ok {
			t.Error("ParsedDate() ok = true for empty date")
		}
	})

	t.Run("unrecognized format", func(t *testing.T) {
		d := classifier.ExtractedData{Date: "15.03.2026"}
		if _, ok := d.ParsedDate(); ok {
			t.Error("ParsedDate() ok = true for unrecognized format")
		}
	})
}

func TestResultUnmarshalModelPayload(t *testing.T) {
	payload := `{
		"document_type": "invoice",
		"sub_type": "utility",
		"language": "de",
		"confidence": 0.92,
		"extracted_data": {
			"vendor_name": "Stadtwerke",
			"amount": "89,90",
			"currency": "EUR",
			"date": "2026-01-10",
			"reference": "RE-2026-0042"
		},
		"suggested_tags": ["utilities", "2026"],
		"sensitivity": "internal",
		"retention_years": "10 years"
	}`

	var res classifier.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		t.Fatalf("Unmarshal err = %v", err)
	}

	if res.DocumentType != classifier.TypeInvoice {
		t.Errorf("DocumentType = %q, want invoice", res.DocumentType)
	}
	if res.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", res.Confidence)
	}
	if !res.ExtractedData.Amount.Valid || res.ExtractedData.Amount.Value != 89.90 {
		t.Errorf("Amount = %+v, want 89.90", res.ExtractedData.Amount)
	}
	if res.RetentionYearsHint != 10 {
		t.Errorf("RetentionYearsHint = %d, want 10", res.RetentionYearsHint)
	}
	if res.Failed() {
		t.Error("Failed() = true for clean payload")
	}
}
