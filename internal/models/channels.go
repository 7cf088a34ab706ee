package models

import (
	"encoding/json"
	"fmt"
)

// GraphQL type names discriminating the settlement and initiation unions
const (
	TypeSettlementViaIntraLedger = "SettlementViaIntraLedger"
	TypeSettlementViaLn          = "SettlementViaLn"
	TypeSettlementViaOnChain     = "SettlementViaOnChain"

	TypeInitiationViaIntraLedger = "InitiationViaIntraLedger"
	TypeInitiationViaLn          = "InitiationViaLn"
	TypeInitiationViaOnChain     = "InitiationViaOnChain"
)

// SettlementChannel is the mechanism that finally settled a transaction.
// Implemented by SettlementIntraLedger, SettlementLn, SettlementOnChain and
// SettlementUnknown.
type SettlementChannel interface {
	Typename() string
}

type SettlementIntraLedger struct {
	CounterPartyWalletID string `json:"counterPartyWalletId"`
	CounterPartyUsername string `json:"counterPartyUsername"`
}

type SettlementLn struct {
	PaymentSecret string `json:"paymentSecret"`
	PreImage      string `json:"preImage"`
}

type SettlementOnChain struct {
	TransactionHash string `json:"transactionHash"`
}

// SettlementUnknown carries a type name this client does not model
type SettlementUnknown struct {
	Name string `json:"-"`
}

func (SettlementIntraLedger) Typename() string { return TypeSettlementViaIntraLedger }
func (SettlementLn) Typename() string          { return TypeSettlementViaLn }
func (SettlementOnChain) Typename() string     { return TypeSettlementViaOnChain }
func (u SettlementUnknown) Typename() string   { return u.Name }

// SettlementVia wraps the settlement union. A nil Channel means absent.
type SettlementVia struct {
	Channel SettlementChannel
}

func (s *SettlementVia) UnmarshalJSON(data []byte) error {
	typename, err := probeTypename(data)
	if err != nil {
		return fmt.Errorf("failed to decode settlementVia: %w", err)
	}
	if typename == nil {
		s.Channel = nil
		return nil
	}

	switch *typename {
	case TypeSettlementViaIntraLedger:
		var c SettlementIntraLedger
		err = json.Unmarshal(data, &c)
		s.Channel = c
	case TypeSettlementViaLn:
		var c SettlementLn
		err = json.Unmarshal(data, &c)
		s.Channel = c
	case TypeSettlementViaOnChain:
		var c SettlementOnChain
		err = json.Unmarshal(data, &c)
		s.Channel = c
	default:
		s.Channel = SettlementUnknown{Name: *typename}
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", *typename, err)
	}
	return nil
}

func (s SettlementVia) MarshalJSON() ([]byte, error) {
	return marshalTagged(s.Channel)
}

// InitiationChannel is the mechanism through which a transaction was started
type InitiationChannel interface {
	Typename() string
}

type InitiationIntraLedger struct {
	CounterPartyWalletID string `json:"counterPartyWalletId"`
	CounterPartyUsername string `json:"counterPartyUsername"`
}

type InitiationLn struct {
	PaymentHash string `json:"paymentHash"`
}

type InitiationOnChain struct {
	Address string `json:"address"`
}

type InitiationUnknown struct {
	Name string `json:"-"`
}

func (InitiationIntraLedger) Typename() string { return TypeInitiationViaIntraLedger }
func (InitiationLn) Typename() string          { return TypeInitiationViaLn }
func (InitiationOnChain) Typename() string     { return TypeInitiationViaOnChain }
func (u InitiationUnknown) Typename() string   { return u.Name }

// InitiationVia wraps the initiation union. A nil Channel means absent.
type InitiationVia struct {
	Channel InitiationChannel
}

func (i *InitiationVia) UnmarshalJSON(data []byte) error {
	typename, err := probeTypename(data)
	if err != nil {
		return fmt.Errorf("failed to decode initiationVia: %w", err)
	}
	if typename == nil {
		i.Channel = nil
		return nil
	}

	switch *typename {
	case TypeInitiationViaIntraLedger:
		var c InitiationIntraLedger
		err = json.Unmarshal(data, &c)
		i.Channel = c
	case TypeInitiationViaLn:
		var c InitiationLn
		err = json.Unmarshal(data, &c)
		i.Channel = c
	case TypeInitiationViaOnChain:
		var c InitiationOnChain
		err = json.Unmarshal(data, &c)
		i.Channel = c
	default:
		i.Channel = InitiationUnknown{Name: *typename}
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", *typename, err)
	}
	return nil
}

func (i InitiationVia) MarshalJSON() ([]byte, error) {
	return marshalTagged(i.Channel)
}

// probeTypename returns nil for a JSON null
func probeTypename(data []byte) (*string, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var probe struct {
		Typename string `json:"__typename"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	return &probe.Typename, nil
}

type tagged interface {
	Typename() string
}

// marshalTagged writes the channel's fields plus its __typename
func marshalTagged(channel tagged) ([]byte, error) {
	if channel == nil {
		return []byte("null"), nil
	}

	body, err := json.Marshal(channel)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["__typename"] = channel.Typename()
	return json.Marshal(fields)
}
