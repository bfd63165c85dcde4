package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Network names a ledger network parameterization.
type Network string

// Supported networks.
const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
	NetworkSignet  Network = "signet"
)

// TxIDSize is the length of a transaction identifier in bytes.
const TxIDSize = 32

// TxID is a transaction identifier in display order, i.e. the byte order of
// its conventional hex rendering.
type TxID [TxIDSize]byte

// ParseTxID decodes a display-order hex string without reordering bytes.
func ParseTxID(s string) (TxID, error) {
	var id TxID
	if len(s) != 2*TxIDSize {
		return id, fmt.Errorf("txid must be %d hex characters, got %d", 2*TxIDSize, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("txid: %w", err)
	}
	return id, nil
}

// Reversed returns the identifier with its byte order flipped.
func (id TxID) Reversed() TxID {
	var out TxID
	for i := range id {
		out[i] = id[TxIDSize-1-i]
	}
	return out
}

func (id TxID) String() string {
	return hex.EncodeToString(id[:])
}

// TxInput references a previous output to spend.
type TxInput struct {
	TxID     TxID    `json:"txid"`
	Vout     uint32  `json:"vout"`
	Sequence *uint32 `json:"sequence,omitempty"` // nil: computed from lock_time
}

// TxOutput is one of AddressOutput, ScriptDataOutput or PhoneOutput.
type TxOutput interface {
	isTxOutput()
}

// AddressOutput pays to a conventional address. Not supported yet.
type AddressOutput struct {
	Address string      `json:"address"`
	Amount  json.Number `json:"amount"`
}

// ScriptDataOutput carries arbitrary script data. Not supported yet.
type ScriptDataOutput struct {
	Data []byte `json:"data"`
}

// PhoneOutput pays Amount coins to the key derived from Phone.
type PhoneOutput struct {
	Phone  string      `json:"phone"`
	Amount json.Number `json:"amount"` // decimal coin value, e.g. "1.5"
}

func (AddressOutput) isTxOutput()    {}
func (ScriptDataOutput) isTxOutput() {}
func (PhoneOutput) isTxOutput()      {}

// DerivedAddress holds an address derived from a phone number.
type DerivedAddress struct {
	Network   Network `json:"network"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	PublicKey string  `json:"public_key"`
}

// PaymentReceipt records a pay2phone request forwarded to the payment backend.
type PaymentReceipt struct {
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	Amount         string    `json:"amount"`
	TxID           string    `json:"txid"`
	CreatedAt      time.Time `json:"created_at"`
}
