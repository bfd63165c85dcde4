package wallet

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

// SecretSize is the length of a secp256k1 private scalar.
const SecretSize = 32

// KeyPair is a secp256k1 key pair bound to a network.
type KeyPair struct {
	params     *chaincfg.Params
	private    *btcec.PrivateKey
	public     *btcec.PublicKey
	compressed bool
}

// NewKeyPair builds a key pair from a 32-byte big-endian secret.
// Secrets that are zero or not below the curve order yield ErrDerivationFailed.
func NewKeyPair(secret []byte, params *chaincfg.Params, compressed bool) (*KeyPair, error) {
	if len(secret) != SecretSize {
		return nil, fmt.Errorf("%w: secret is %d bytes, want %d", ErrDerivationFailed, len(secret), SecretSize)
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(secret); overflow {
		return nil, fmt.Errorf("%w: secret exceeds curve order", ErrDerivationFailed)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("%w: secret is zero", ErrDerivationFailed)
	}

	priv, pub := btcec.PrivKeyFromBytes(secret)
	return &KeyPair{
		params:     params,
		private:    priv,
		public:     pub,
		compressed: compressed,
	}, nil
}

// Params returns the network the key pair encodes addresses for.
func (k *KeyPair) Params() *chaincfg.Params { return k.params }

// Secret returns a copy of the private scalar.
func (k *KeyPair) Secret() []byte { return k.private.Serialize() }

// PubKey returns the public point.
func (k *KeyPair) PubKey() *btcec.PublicKey { return k.public }

// Compressed reports whether the public key serializes in compressed form.
func (k *KeyPair) Compressed() bool { return k.compressed }

// SerializePubKey returns the public key in the pair's configured encoding.
func (k *KeyPair) SerializePubKey() []byte {
	if k.compressed {
		return k.public.SerializeCompressed()
	}
	return k.public.SerializeUncompressed()
}

// PubKeyHash returns Hash160 of the serialized public key.
func (k *KeyPair) PubKeyHash() []byte {
	return hash160(k.SerializePubKey())
}

// Address returns the pay-to-pubkey-hash address of the key pair.
func (k *KeyPair) Address() (*btcutil.AddressPubKeyHash, error) {
	return btcutil.NewAddressPubKeyHash(k.PubKeyHash(), k.params)
}

// PhoneDeriver derives key pairs from phone numbers.
// The secret is the first 32 bytes of SHA-512(phone); keys are uncompressed.
type PhoneDeriver struct {
	network models.Network
	params  *chaincfg.Params
}

// NewPhoneDeriver returns a deriver encoding addresses for network.
func NewPhoneDeriver(network models.Network) (*PhoneDeriver, error) {
	params, err := NetworkParams(network)
	if err != nil {
		return nil, err
	}
	return &PhoneDeriver{network: network, params: params}, nil
}

// Network returns the network identifier.
func (d *PhoneDeriver) Network() models.Network {
	return d.network
}

// Params returns the chain parameters used for address encoding.
func (d *PhoneDeriver) Params() *chaincfg.Params {
	return d.params
}

// Derive computes the key pair for phone.
func (d *PhoneDeriver) Derive(phone string) (*KeyPair, error) {
	digest := sha512.Sum512([]byte(phone))
	return NewKeyPair(digest[:SecretSize], d.params, false)
}

// GenerateFromPhone derives the address for phone.
func (d *PhoneDeriver) GenerateFromPhone(phone string) (*models.DerivedAddress, error) {
	kp, err := d.Derive(phone)
	if err != nil {
		return nil, err
	}
	addr, err := kp.Address()
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	return &models.DerivedAddress{
		Network:   d.network,
		Phone:     phone,
		Address:   addr.EncodeAddress(),
		PublicKey: hex.EncodeToString(kp.SerializePubKey()),
	}, nil
}
