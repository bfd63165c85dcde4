package tx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/olehkaliuzhnyi/pay2phone/internal/wallet"
	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

// TxVersion is the version of every assembled transaction.
const TxVersion int32 = 1

var (
	// ErrNotImplemented is returned for output variants the builder does not support.
	ErrNotImplemented = errors.New("not implemented")

	// ErrSerializationFailed is returned when wire encoding or decoding fails.
	ErrSerializationFailed = errors.New("serialization failed")
)

// BuilderConfig holds configurable parameters for the transaction builder.
type BuilderConfig struct {
	// UnitsPerCoin is the number of base units in one coin.
	UnitsPerCoin int64
}

// Builder assembles unsigned pay-to-phone transactions.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	deriver wallet.KeyDeriver
	cfg     BuilderConfig
}

// NewBuilder creates a transaction builder deriving recipient keys with deriver.
func NewBuilder(cfg BuilderConfig, deriver wallet.KeyDeriver) *Builder {
	if cfg.UnitsPerCoin <= 0 {
		cfg.UnitsPerCoin = btcutil.SatoshiPerBitcoin
	}
	return &Builder{deriver: deriver, cfg: cfg}
}

// ToBaseUnits converts a decimal coin amount using the builder's unit size.
func (b *Builder) ToBaseUnits(amount string) (int64, error) {
	return ToBaseUnits(amount, b.cfg.UnitsPerCoin)
}

// FormatAmount renders base units as a canonical decimal coin amount.
func (b *Builder) FormatAmount(units int64) string {
	return FormatBaseUnits(units, b.cfg.UnitsPerCoin)
}

// DefaultSequence is the sequence given to inputs without an explicit one.
// A non-final sequence is needed for a non-zero lock time to take effect.
func DefaultSequence(lockTime uint32) uint32 {
	if lockTime == 0 {
		return wire.MaxTxInSequenceNum
	}
	return wire.MaxTxInSequenceNum - 1
}

// Build assembles an unsigned transaction. Input ids are in display order and
// are reversed into internal order here. A nil lockTime means 0.
// The defaulted sequence applies to every input lacking one, not just the first.
func (b *Builder) Build(inputs []models.TxInput, outputs []models.TxOutput, lockTime *uint32) (*wire.MsgTx, error) {
	var lt uint32
	if lockTime != nil {
		lt = *lockTime
	}
	defaultSeq := DefaultSequence(lt)

	msgTx := wire.NewMsgTx(TxVersion)
	msgTx.LockTime = lt

	for _, in := range inputs {
		hash := chainhash.Hash(in.TxID.Reversed())
		txIn := wire.NewTxIn(wire.NewOutPoint(&hash, in.Vout), nil, nil)
		txIn.Sequence = defaultSeq
		if in.Sequence != nil {
			txIn.Sequence = *in.Sequence
		}
		msgTx.AddTxIn(txIn)
	}

	for i, out := range outputs {
		txOut, err := b.buildOutput(out)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		msgTx.AddTxOut(txOut)
	}

	return msgTx, nil
}

func (b *Builder) buildOutput(out models.TxOutput) (*wire.TxOut, error) {
	switch o := out.(type) {
	case models.PhoneOutput:
		value, err := b.ToBaseUnits(o.Amount.String())
		if err != nil {
			return nil, err
		}
		kp, err := b.deriver.Derive(o.Phone)
		if err != nil {
			return nil, err
		}
		return wire.NewTxOut(value, P2PKHScript(kp.PubKeyHash())), nil
	case models.AddressOutput:
		return nil, fmt.Errorf("%w: address outputs", ErrNotImplemented)
	case models.ScriptDataOutput:
		return nil, fmt.Errorf("%w: script data outputs", ErrNotImplemented)
	default:
		return nil, fmt.Errorf("%w: output type %T", ErrNotImplemented, out)
	}
}

// Serialize encodes msgTx in the legacy (non-witness) wire format.
func Serialize(msgTx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(msgTx.SerializeSizeStripped())
	if err := msgTx.SerializeNoWitness(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a legacy wire-format transaction.
func Deserialize(raw []byte) (*wire.MsgTx, error) {
	msgTx := new(wire.MsgTx)
	if err := msgTx.DeserializeNoWitness(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return msgTx, nil
}
