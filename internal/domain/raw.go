package domain

// ============================================================
// Raw input variants
// ============================================================
//
// Ingestion callers hand the normalizer a tagged variant per source instead
// of an arbitrary map, so classification is explicit rather than sniffed
// from the shape of the data.

// RawInput is the sealed union of ingestable shapes. The normalizer accepts
// any of the variants below; a nil RawInput normalizes to the default record.
type RawInput interface {
	rawInput()
}

// MovementDirection distinguishes credit from debit on a bank movement.
type MovementDirection string

const (
	DirectionCredit MovementDirection = "credit"
	DirectionDebit  MovementDirection = "debit"
)

// RawBankMovement is one line of an imported bank statement.
type RawBankMovement struct {
	MovementID  string            `json:"movement_id"`
	Date        string            `json:"date"`
	Amount      float64           `json:"amount"`
	Direction   MovementDirection `json:"direction"`
	Description string            `json:"description"`
	Reference   string            `json:"reference,omitempty"`
}

// RawInvoice is a CFDI tax document, issued or received. The same shape
// serves both, so the caller supplies the income/expense classification via
// NormalizeOptions; the normalizer never guesses direction for documents.
type RawInvoice struct {
	InvoiceID    string  `json:"invoice_id"`
	DocumentUUID string  `json:"document_uuid"` // fiscal folio UUID
	IssuedAt     string  `json:"issued_at"`
	Total        float64 `json:"total"`
	IssuerTaxID  string  `json:"issuer_tax_id"` // RFC
	Folio        string  `json:"folio"`
	Concept      string  `json:"concept"`
	Status       string  `json:"status,omitempty"`
}

// RawManualEntry is a record typed in by the user. Manual entries are allowed
// stable caller-supplied identifiers; every other path generates a fresh one.
type RawManualEntry struct {
	ID         string         `json:"id,omitempty"`
	Date       string         `json:"date"`
	Amount     float64        `json:"amount"`
	Concept    string         `json:"concept"`
	Type       string         `json:"type,omitempty"`       // validated against the closed enum
	Source     string         `json:"source,omitempty"`     // validated against the closed enum
	Taxability string         `json:"taxability,omitempty"` // validated against the closed enum
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (RawBankMovement) rawInput() {}
func (RawInvoice) rawInput()      {}
func (RawManualEntry) rawInput()  {}
