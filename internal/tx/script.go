package tx

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// PubKeyHashSize is the length of a Hash160 digest.
const PubKeyHashSize = 20

// P2PKHScript returns the standard pay-to-pubkey-hash locking script:
//
//	OP_DUP OP_HASH160 <pubKeyHash> OP_EQUALVERIFY OP_CHECKSIG
//
// It panics if pubKeyHash is not 20 bytes long.
func P2PKHScript(pubKeyHash []byte) []byte {
	if len(pubKeyHash) != PubKeyHashSize {
		panic(fmt.Sprintf("tx: P2PKHScript called with %d-byte hash", len(pubKeyHash)))
	}
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		// Only reachable if the builder's size limits are exceeded, which a
		// 25-byte script cannot do.
		panic(fmt.Sprintf("tx: build p2pkh script: %v", err))
	}
	return script
}
