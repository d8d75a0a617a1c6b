package classifier

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/internal/documents"
)

// TagResolver matches suggested tag names against the existing
// taxonomy. Implementations never create tags.
type TagResolver interface {
	Resolve(ctx context.Context, names []string) ([]uuid.UUID, error)
}

// maxAutoTags bounds how many suggested tag names are considered per
// classification.
const maxAutoTags = 5

// Apply maps a classification result onto a document field-update set,
// gated by the confidence threshold (inclusive lower bound). A result
// carrying an error marker or scoring below threshold yields an empty
// update and applied=false; the document is left untouched. Applied is
// true iff at least one field would change. The caller commits the
// update; Apply itself never writes.
func Apply(
	ctx context.Context,
	res *Result,
	threshold float64,
	autoTag bool,
	resolver TagResolver,
) (documents.ExtractionUpdate, bool, error) {
	var update documents.ExtractionUpdate

	if res.Failed() || res.Confidence < threshold {
		return update, false, nil
	}

	confidence := res.Confidence
	update.Confidence = &confidence

	if v := res.ExtractedData.VendorName; v != "" {
		update.Vendor = &v
	}
	if res.ExtractedData.Amount.Valid {
		amount := res.ExtractedData.Amount.Value
		update.Amount = &amount
	}
	if c := res.ExtractedData.Currency; c != "" {
		update.Currency = &c
	}
	if date, ok := res.ExtractedData.ParsedDate(); ok {
		update.Date = date
	}
	if ref := res.ExtractedData.Reference; ref != "" {
		update.Reference = &ref
	}

	if res.DocumentType == TypeInvoice {
		update.Invoice = true
	}

	if s := res.Sensitivity; documents.RecognizedSensitivity(s) {
		update.Sensitivity = &s
	}

	if autoTag && len(res.SuggestedTags) > 0 && resolver != nil {
		names := res.SuggestedTags
		if len(names) > maxAutoTags {
			names = names[:maxAutoTags]
		}

		ids, err := resolver.Resolve(ctx, names)
		if err != nil {
			return documents.ExtractionUpdate{}, false, err
		}
		update.TagIDs = ids
	}

	return update, !update.Empty(), nil
}
