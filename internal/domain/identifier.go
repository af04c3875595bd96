package domain

// IdentifierKind classifies an extracted artifact.
type IdentifierKind string

const (
	KindUPI         IdentifierKind = "UPI_ID"
	KindBankAccount IdentifierKind = "BANK_ACCOUNT"
	KindPhone       IdentifierKind = "PHONE_NUMBER"
	KindURL         IdentifierKind = "URL"
)

// Critical reports whether one identifier of this kind is sufficient on its
// own to justify the callback.
func (k IdentifierKind) Critical() bool {
	switch k {
	case KindUPI, KindBankAccount, KindPhone:
		return true
	}
	return false
}

// Identifier is an extracted payment artifact. Equality is defined on
// (Kind, Value) — two raw strings normalizing to the same value are the
// same identifier.
type Identifier struct {
	Kind       IdentifierKind `json:"kind"`
	Value      string         `json:"value"` // normalized form
	Raw        string         `json:"raw,omitempty"`
	SourceTurn int            `json:"sourceTurn"`
}

// Key returns the dedup key for this identifier.
func (i Identifier) Key() string {
	return string(i.Kind) + ":" + i.Value
}
