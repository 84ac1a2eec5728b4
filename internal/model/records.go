package model

// SessionRecord summarizes one dispatch session against a built catalog.
type SessionRecord struct {
	VersionedRecord
	ID           string   `json:"id"`
	CreatedAtUTC string   `json:"created_at_utc"`
	Catalog      string   `json:"catalog"`
	Kinds        []string `json:"kinds"`
	Rounds       int      `json:"rounds"`
	Dispatches   int      `json:"dispatches"`
	Failures     int      `json:"failures"`
}

// DispatchRecord is one getOperator outcome within a session.
type DispatchRecord struct {
	VersionedRecord
	Round      int    `json:"round"`
	GenotypeID string `json:"genotype_id"`
	Variant    string `json:"variant"`
	Kind       string `json:"kind"`
	Operator   string `json:"operator,omitempty"`
	NoOperator bool   `json:"no_operator,omitempty"`
	Error      string `json:"error,omitempty"`
}
