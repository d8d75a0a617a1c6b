package classifier

// classificationPrompt instructs the model to return the normalized
// Result shape. The German type list reflects the primary document
// corpus this system manages.
const classificationPrompt = `Analyze this document and classify it. Return JSON with:
{
    "document_type": "invoice|contract|certificate|correspondence|tax|medical|id_document|other",
    "sub_type": "specific type within category",
    "language": "de|en|other",
    "confidence": 0.0-1.0,
    "extracted_data": {
        "vendor_name": "if applicable",
        "amount": "numeric value if found",
        "currency": "EUR|USD|etc",
        "date": "YYYY-MM-DD if found",
        "reference": "invoice/contract number if found"
    },
    "suggested_tags": ["list", "of", "relevant", "tags"],
    "sensitivity": "public|internal|confidential|restricted",
    "retention_years": "suggested retention period based on German law"
}

German document types to detect:
- Rechnung (Invoice)
- Vertrag (Contract)
- Kontoauszug (Bank Statement)
- Steuerbescheid (Tax Notice)
- Mietvertrag (Lease Agreement)
- Versicherungspolice (Insurance Policy)
- Lohnabrechnung (Payroll)
- Bewerbung (Application)
`
