package tx

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/wire"

	"github.com/olehkaliuzhnyi/pay2phone/internal/wallet"
	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

const (
	testPhone     = "+15551234567"
	testPhoneHash = "76908fdc028f8c27e395cf1e08b726ea684cceaa"
	testTxIDHex   = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
)

// mockDeriver implements wallet.KeyDeriver with a fixed error.
type mockDeriver struct {
	err error
}

func (m *mockDeriver) Derive(phone string) (*wallet.KeyPair, error) {
	return nil, m.err
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	d, err := wallet.NewPhoneDeriver(models.NetworkTestnet)
	if err != nil {
		t.Fatal(err)
	}
	return NewBuilder(BuilderConfig{UnitsPerCoin: 100_000_000}, d)
}

func testTxID(t *testing.T) models.TxID {
	t.Helper()
	id, err := models.ParseTxID(testTxIDHex)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func u32(v uint32) *uint32 { return &v }

func TestBuilder_WireEncoding(t *testing.T) {
	b := newTestBuilder(t)

	msgTx, err := b.Build(
		[]models.TxInput{{TxID: testTxID(t), Vout: 7}},
		[]models.TxOutput{models.PhoneOutput{Phone: testPhone, Amount: "1.5"}},
		u32(500000),
	)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := Serialize(msgTx)
	if err != nil {
		t.Fatal(err)
	}

	want := "01000000" + // version
		"01" + // input count
		"201f1e1d1c1b1a191817161514131211100f0e0d0c0b0a090807060504030201" + // prev id, internal order
		"07000000" + // vout
		"00" + // empty script
		"feffffff" + // sequence
		"01" + // output count
		"80d1f00800000000" + // 150000000 base units
		"19" + "76a914" + testPhoneHash + "88ac" +
		"20a10700" // lock time 500000
	if got := hex.EncodeToString(raw); got != want {
		t.Errorf("serialized tx mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestBuilder_DefaultSequence(t *testing.T) {
	b := newTestBuilder(t)
	id := testTxID(t)
	inputs := []models.TxInput{{TxID: id, Vout: 0}, {TxID: id, Vout: 1}, {TxID: id, Vout: 2}}
	outputs := []models.TxOutput{models.PhoneOutput{Phone: testPhone, Amount: "0.1"}}

	tests := []struct {
		name     string
		lockTime *uint32
		wantSeq  uint32
		wantLock uint32
	}{
		{"absent lock time", nil, wire.MaxTxInSequenceNum, 0},
		{"zero lock time", u32(0), wire.MaxTxInSequenceNum, 0},
		{"height lock time", u32(500000), wire.MaxTxInSequenceNum - 1, 500000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgTx, err := b.Build(inputs, outputs, tt.lockTime)
			if err != nil {
				t.Fatal(err)
			}
			if msgTx.LockTime != tt.wantLock {
				t.Errorf("LockTime = %d, want %d", msgTx.LockTime, tt.wantLock)
			}
			// Every input without its own sequence gets the default, not only the first.
			for i, in := range msgTx.TxIn {
				if in.Sequence != tt.wantSeq {
					t.Errorf("input %d sequence = %#x, want %#x", i, in.Sequence, tt.wantSeq)
				}
			}
		})
	}
}

func TestBuilder_ExplicitSequence(t *testing.T) {
	b := newTestBuilder(t)
	id := testTxID(t)

	msgTx, err := b.Build(
		[]models.TxInput{
			{TxID: id, Vout: 0, Sequence: u32(42)},
			{TxID: id, Vout: 1},
			{TxID: id, Vout: 2, Sequence: u32(wire.MaxTxInSequenceNum)},
		},
		nil,
		u32(1),
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []uint32{42, wire.MaxTxInSequenceNum - 1, wire.MaxTxInSequenceNum}
	for i, in := range msgTx.TxIn {
		if in.Sequence != want[i] {
			t.Errorf("input %d sequence = %d, want %d", i, in.Sequence, want[i])
		}
	}
}

func TestBuilder_InputIDReversedOnce(t *testing.T) {
	b := newTestBuilder(t)
	id := testTxID(t)

	msgTx, err := b.Build([]models.TxInput{{TxID: id, Vout: 3}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	prev := msgTx.TxIn[0].PreviousOutPoint
	// chainhash renders internal order back into display order.
	if got := prev.Hash.String(); got != testTxIDHex {
		t.Errorf("outpoint hash = %s, want %s", got, testTxIDHex)
	}
	if !bytes.Equal(prev.Hash[:], func() []byte { r := id.Reversed(); return r[:] }()) {
		t.Error("outpoint hash should hold the reversed display bytes")
	}
	if prev.Index != 3 {
		t.Errorf("outpoint index = %d, want 3", prev.Index)
	}
}

func TestBuilder_Unsigned(t *testing.T) {
	b := newTestBuilder(t)
	id := testTxID(t)

	msgTx, err := b.Build(
		[]models.TxInput{{TxID: id, Vout: 0}, {TxID: id, Vout: 1}},
		[]models.TxOutput{models.PhoneOutput{Phone: testPhone, Amount: "2"}},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	if msgTx.Version != 1 {
		t.Errorf("version = %d, want 1", msgTx.Version)
	}
	for i, in := range msgTx.TxIn {
		if len(in.SignatureScript) != 0 {
			t.Errorf("input %d should have an empty signature script", i)
		}
		if len(in.Witness) != 0 {
			t.Errorf("input %d should have no witness", i)
		}
	}
}

func TestBuilder_PhoneOutput(t *testing.T) {
	b := newTestBuilder(t)

	msgTx, err := b.Build(nil, []models.TxOutput{
		models.PhoneOutput{Phone: testPhone, Amount: "0.00000001"},
		models.PhoneOutput{Phone: testPhone, Amount: "1.23456789123"},
		models.PhoneOutput{Phone: "+447700900123", Amount: "21"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(msgTx.TxOut) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(msgTx.TxOut))
	}
	if v := msgTx.TxOut[0].Value; v != 1 {
		t.Errorf("output 0 value = %d, want 1", v)
	}
	if v := msgTx.TxOut[1].Value; v != 123456789 {
		t.Errorf("output 1 value = %d, want 123456789", v)
	}
	if v := msgTx.TxOut[2].Value; v != 2_100_000_000 {
		t.Errorf("output 2 value = %d, want 2100000000", v)
	}

	wantScript := "76a914" + testPhoneHash + "88ac"
	if got := hex.EncodeToString(msgTx.TxOut[0].PkScript); got != wantScript {
		t.Errorf("output 0 script = %s, want %s", got, wantScript)
	}
	if bytes.Equal(msgTx.TxOut[0].PkScript, msgTx.TxOut[2].PkScript) {
		t.Error("different phones should get different scripts")
	}
}

func TestBuilder_NotImplemented(t *testing.T) {
	b := newTestBuilder(t)
	inputs := []models.TxInput{{TxID: testTxID(t), Vout: 0}}

	tests := []struct {
		name    string
		outputs []models.TxOutput
	}{
		{"address", []models.TxOutput{models.AddressOutput{Address: "mrKsD2ifbzYGqDocXk9KGFDAZpVVLUWC4R", Amount: "1"}}},
		{"script data", []models.TxOutput{models.ScriptDataOutput{Data: []byte{0x6a}}}},
		{"after a phone output", []models.TxOutput{
			models.PhoneOutput{Phone: testPhone, Amount: "1"},
			models.ScriptDataOutput{Data: []byte{0x6a}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgTx, err := b.Build(inputs, tt.outputs, nil)
			if !errors.Is(err, ErrNotImplemented) {
				t.Errorf("expected ErrNotImplemented, got %v", err)
			}
			if msgTx != nil {
				t.Error("no partial transaction should be returned")
			}
		})
	}
}

func TestBuilder_DerivationFailed(t *testing.T) {
	b := NewBuilder(BuilderConfig{}, &mockDeriver{err: wallet.ErrDerivationFailed})

	msgTx, err := b.Build(nil, []models.TxOutput{models.PhoneOutput{Phone: testPhone, Amount: "1"}}, nil)
	if !errors.Is(err, wallet.ErrDerivationFailed) {
		t.Errorf("expected ErrDerivationFailed, got %v", err)
	}
	if msgTx != nil {
		t.Error("no partial transaction should be returned")
	}
}

func TestBuilder_InvalidAmount(t *testing.T) {
	b := newTestBuilder(t)

	for _, amount := range []json.Number{"-1", "abc", ""} {
		_, err := b.Build(nil, []models.TxOutput{models.PhoneOutput{Phone: testPhone, Amount: amount}}, nil)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestBuilder_DefaultUnitsPerCoin(t *testing.T) {
	b := NewBuilder(BuilderConfig{}, &mockDeriver{})
	if b.cfg.UnitsPerCoin != 100_000_000 {
		t.Errorf("UnitsPerCoin = %d, want 1e8", b.cfg.UnitsPerCoin)
	}
}

func TestBuilder_CustomUnitsPerCoin(t *testing.T) {
	d, err := wallet.NewPhoneDeriver(models.NetworkRegtest)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(BuilderConfig{UnitsPerCoin: 1000}, d)

	msgTx, err := b.Build(nil, []models.TxOutput{models.PhoneOutput{Phone: testPhone, Amount: "1.2345"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := msgTx.TxOut[0].Value; v != 1234 {
		t.Errorf("value = %d, want 1234", v)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	b := newTestBuilder(t)
	id := testTxID(t)

	orig, err := b.Build(
		[]models.TxInput{
			{TxID: id, Vout: 0},
			{TxID: id.Reversed(), Vout: 9, Sequence: u32(5)},
		},
		[]models.TxOutput{
			models.PhoneOutput{Phone: testPhone, Amount: "0.5"},
			models.PhoneOutput{Phone: "+81312345678", Amount: "0.25"},
		},
		u32(1_700_000_000),
	)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := Serialize(orig)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Deserialize(raw)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.Version != orig.Version || decoded.LockTime != orig.LockTime {
		t.Errorf("header mismatch: got v%d/%d, want v%d/%d",
			decoded.Version, decoded.LockTime, orig.Version, orig.LockTime)
	}
	if len(decoded.TxIn) != len(orig.TxIn) || len(decoded.TxOut) != len(orig.TxOut) {
		t.Fatalf("shape mismatch: %d/%d inputs, %d/%d outputs",
			len(decoded.TxIn), len(orig.TxIn), len(decoded.TxOut), len(orig.TxOut))
	}
	for i := range orig.TxIn {
		o, d := orig.TxIn[i], decoded.TxIn[i]
		if o.PreviousOutPoint != d.PreviousOutPoint {
			t.Errorf("input %d outpoint = %v, want %v", i, d.PreviousOutPoint, o.PreviousOutPoint)
		}
		if o.Sequence != d.Sequence {
			t.Errorf("input %d sequence = %d, want %d", i, d.Sequence, o.Sequence)
		}
		if !bytes.Equal(o.SignatureScript, d.SignatureScript) {
			t.Errorf("input %d signature script mismatch", i)
		}
	}
	for i := range orig.TxOut {
		o, d := orig.TxOut[i], decoded.TxOut[i]
		if o.Value != d.Value || !bytes.Equal(o.PkScript, d.PkScript) {
			t.Errorf("output %d = %d/%x, want %d/%x", i, d.Value, d.PkScript, o.Value, o.PkScript)
		}
	}
	if decoded.TxHash() != orig.TxHash() {
		t.Errorf("txid mismatch: %s vs %s", decoded.TxHash(), orig.TxHash())
	}
}

func TestDeserialize_Garbage(t *testing.T) {
	if _, err := Deserialize([]byte{0x01, 0x00}); !errors.Is(err, ErrSerializationFailed) {
		t.Errorf("expected ErrSerializationFailed, got %v", err)
	}
}
