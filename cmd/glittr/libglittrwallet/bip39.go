package libglittrwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// CreateMnemonic returns a new 24 word mnemonic.
func CreateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", errors.WithStack(err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return mnemonic, nil
}

// DefaultPath is the BIP44 path of the first receive key for params.
func DefaultPath(params *chaincfg.Params) string {
	return fmt.Sprintf("m/44'/%d'/0'/0/0", params.HDCoinType)
}

// KeyFromMnemonic derives the key at DefaultPath from mnemonic.
func KeyFromMnemonic(mnemonic string, params *chaincfg.Params) (*Key, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + params.HDCoinType,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	}
	extendedKey := master
	for _, index := range path {
		extendedKey, err = extendedKey.Child(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive %s", DefaultPath(params))
		}
	}
	privateKey, err := extendedKey.ECPrivKey()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	log.Debugf("Derived wallet key at %s on %s", DefaultPath(params), params.Name)
	return NewKey(privateKey.Serialize(), true, params)
}
