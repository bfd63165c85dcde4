package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

// ErrDerivationFailed is returned when hashed key material is not a valid
// secp256k1 scalar (zero or not below the group order).
var ErrDerivationFailed = errors.New("key derivation failed")

// KeyDeriver defines how a phone number maps to a key pair.
type KeyDeriver interface {
	// Derive returns the key pair for phone. Equal inputs give equal keys.
	Derive(phone string) (*KeyPair, error)
}

// Generator produces displayable addresses for phone numbers.
type Generator interface {
	// Network returns the network whose address encoding is used.
	Network() models.Network

	// GenerateFromPhone derives the pay-to-pubkey-hash address for phone.
	GenerateFromPhone(phone string) (*models.DerivedAddress, error)
}

// NetworkParams resolves a network name to its chain parameters.
func NetworkParams(network models.Network) (*chaincfg.Params, error) {
	switch network {
	case models.NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case models.NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case models.NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	case models.NetworkSignet:
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}
