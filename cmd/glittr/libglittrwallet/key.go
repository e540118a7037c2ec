// Package libglittrwallet holds the single-key wallet used by the glittr
// command: key import, P2PKH addresses and ECDSA signing.
package libglittrwallet

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/glittrfi/glittr-go/domain/assembler"
	"github.com/pkg/errors"
)

// Key is a secp256k1 private key bound to a network.
type Key struct {
	privateKey *secp256k1.PrivateKey
	compressed bool
	params     *chaincfg.Params
}

var _ assembler.Signer = (*Key)(nil)

// NewKey returns the key of the 32 byte private key scalar.
func NewKey(privateKey []byte, compressed bool, params *chaincfg.Params) (*Key, error) {
	if len(privateKey) != secp256k1.PrivKeyBytesLen {
		return nil, errors.Errorf("private key must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(privateKey))
	}
	var scalar secp256k1.ModNScalar
	overflow := scalar.SetByteSlice(privateKey)
	if overflow || scalar.IsZero() {
		return nil, errors.New("private key is out of range")
	}
	return &Key{
		privateKey: secp256k1.NewPrivateKey(&scalar),
		compressed: compressed,
		params:     params,
	}, nil
}

// KeyFromWIF imports a key in wallet import format. The WIF must belong to
// params.
func KeyFromWIF(wif string, params *chaincfg.Params) (*Key, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, errors.Wrap(err, "invalid WIF private key")
	}
	if !decoded.IsForNet(params) {
		return nil, errors.Errorf("private key is not for %s", params.Name)
	}
	return NewKey(decoded.PrivKey.Serialize(), decoded.CompressPubKey, params)
}

// WIF returns the key in wallet import format.
func (k *Key) WIF() (string, error) {
	privateKey, _ := btcec.PrivKeyFromBytes(btcec.S256(), k.privateKey.Serialize())
	wif, err := btcutil.NewWIF(privateKey, k.params, k.compressed)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return wif.String(), nil
}

// PublicKey returns the serialized public key, compressed unless the key
// was imported from an uncompressed WIF.
func (k *Key) PublicKey() []byte {
	if k.compressed {
		return k.privateKey.PubKey().SerializeCompressed()
	}
	return k.privateKey.PubKey().SerializeUncompressed()
}

// Sign returns the DER encoded RFC6979 ECDSA signature of hash.
func (k *Key) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, errors.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	return ecdsa.Sign(k.privateKey, hash).Serialize(), nil
}

// Address returns the P2PKH address of the key.
func (k *Key) Address() (*btcutil.AddressPubKeyHash, error) {
	address, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(k.PublicKey()), k.params)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return address, nil
}

// Params returns the network of the key.
func (k *Key) Params() *chaincfg.Params {
	return k.params
}

// ECDSAVerifier verifies DER encoded secp256k1 ECDSA signatures.
type ECDSAVerifier struct{}

var _ assembler.Verifier = ECDSAVerifier{}

// Verify reports whether signature is a valid signature of hash by pubKey.
func (ECDSAVerifier) Verify(pubKey []byte, hash []byte, signature []byte) bool {
	key, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, key)
}
