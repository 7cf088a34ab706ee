package models

// UnknownDate is the month key for transactions whose date could not be parsed
const UnknownDate = "Unknown Date"

// FormattedTransaction is the display form of a Transaction. It is
// recomputed every refresh cycle and never persisted.
type FormattedTransaction struct {
	MonthKey     string `json:"monthKey"`
	DisplayDate  string `json:"displayDate"`
	Type         string `json:"type"`
	SignedAmount string `json:"signedAmount"`
	Status       string `json:"status"`
	Hash         string `json:"hash"`
	Memo         string `json:"memo"`
}

// MonthGroup is the set of formatted transactions sharing a month key, in
// server order
type MonthGroup struct {
	Key          string                 `json:"key"`
	Transactions []FormattedTransaction `json:"transactions"`
}
