package models

import (
	"encoding/json"
	"fmt"
)

// Direction of a transaction relative to the account
type Direction string

const (
	DirectionSend    Direction = "SEND"
	DirectionReceive Direction = "RECEIVE"
)

// TxStatus is the provider's transaction status
type TxStatus string

const (
	StatusPending TxStatus = "PENDING"
	StatusSuccess TxStatus = "SUCCESS"
	StatusFailure TxStatus = "FAILURE"
)

// Transaction is one raw transaction record from the provider.
// Amount and fee are in minor units of SettlementCurrency.
type Transaction struct {
	ID                 string        `json:"id"`
	Status             TxStatus      `json:"status"`
	Direction          Direction     `json:"direction"`
	Memo               *string       `json:"memo"`
	SettlementAmount   int64         `json:"settlementAmount"`
	SettlementCurrency Currency      `json:"settlementCurrency"`
	SettlementFee      int64         `json:"settlementFee"`
	CreatedAt          CreatedAt     `json:"createdAt"`
	SettlementVia      SettlementVia `json:"settlementVia"`
	InitiationVia      InitiationVia `json:"initiationVia"`
}

// TransactionEdge pairs a transaction with its pagination cursor
type TransactionEdge struct {
	Cursor string      `json:"cursor"`
	Node   Transaction `json:"node"`
}

// PageInfo drives cursor continuation
type PageInfo struct {
	EndCursor   *string `json:"endCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// TransactionPage is one page of the transactions connection
type TransactionPage struct {
	Edges    []TransactionEdge `json:"edges"`
	PageInfo PageInfo          `json:"pageInfo"`
}

// CreatedAt keeps the raw createdAt value, which the API encodes either as
// epoch seconds or as an ISO-8601 string. Decoding never fails; parsing is
// left to the formatter.
type CreatedAt struct {
	raw json.RawMessage
}

// EpochCreatedAt builds a CreatedAt from epoch seconds
func EpochCreatedAt(seconds int64) CreatedAt {
	return CreatedAt{raw: json.RawMessage(fmt.Sprintf("%d", seconds))}
}

// TextCreatedAt builds a CreatedAt from a string value
func TextCreatedAt(s string) CreatedAt {
	raw, _ := json.Marshal(s)
	return CreatedAt{raw: raw}
}

// Raw returns the undecoded JSON value
func (c CreatedAt) Raw() json.RawMessage {
	return c.raw
}

// String returns the value as it was received: unquoted for strings,
// literal JSON text otherwise, empty when absent.
func (c CreatedAt) String() string {
	if len(c.raw) == 0 || string(c.raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(c.raw, &s); err == nil {
		return s
	}
	return string(c.raw)
}

func (c *CreatedAt) UnmarshalJSON(data []byte) error {
	c.raw = append(c.raw[:0], data...)
	return nil
}

func (c CreatedAt) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}
