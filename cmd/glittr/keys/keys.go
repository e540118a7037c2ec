// Package keys stores the wallet mnemonic in a password encrypted file.
package keys

import (
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const keysFileName = "keys.json"

// DefaultKeysFile returns the keys file of params inside appDir.
func DefaultKeysFile(appDir string, params *chaincfg.Params) string {
	return filepath.Join(appDir, params.Name, keysFileName)
}

type encryptedMnemonicJSON struct {
	Cipher string `json:"cipher"`
	Salt   string `json:"salt"`
}

type keysFileJSON struct {
	EncryptedMnemonic *encryptedMnemonicJSON `json:"encryptedMnemonic"`
	Address           string                 `json:"address"`
	Network           string                 `json:"network"`
}

// EncryptedMnemonic represents an encrypted mnemonic
type EncryptedMnemonic struct {
	cipher []byte
	salt   []byte
}

// Data holds all the data related to the wallet keys
type Data struct {
	encryptedMnemonic *EncryptedMnemonic
	Address           string
	Network           string
}

func (d *Data) toJSON() *keysFileJSON {
	return &keysFileJSON{
		EncryptedMnemonic: &encryptedMnemonicJSON{
			Cipher: hex.EncodeToString(d.encryptedMnemonic.cipher),
			Salt:   hex.EncodeToString(d.encryptedMnemonic.salt),
		},
		Address: d.Address,
		Network: d.Network,
	}
}

func (d *Data) fromJSON(fileJSON *keysFileJSON) error {
	if fileJSON.EncryptedMnemonic == nil {
		return errors.New("keys file has no encrypted mnemonic")
	}
	cipher, err := hex.DecodeString(fileJSON.EncryptedMnemonic.Cipher)
	if err != nil {
		return errors.Wrap(err, "invalid mnemonic cipher")
	}
	salt, err := hex.DecodeString(fileJSON.EncryptedMnemonic.Salt)
	if err != nil {
		return errors.Wrap(err, "invalid mnemonic salt")
	}
	d.encryptedMnemonic = &EncryptedMnemonic{cipher: cipher, salt: salt}
	d.Address = fileJSON.Address
	d.Network = fileJSON.Network
	return nil
}

// DecryptMnemonic decrypts the mnemonic with password.
func (d *Data) DecryptMnemonic(password []byte) (string, error) {
	return decryptMnemonic(d.encryptedMnemonic, password)
}

// ReadKeysFile returns the data related to the keys file
func ReadKeysFile(path string) (*Data, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	decodedFile := &keysFileJSON{}
	err = decoder.Decode(&decodedFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse keys file %s", path)
	}

	keysFile := &Data{}
	err = keysFile.fromJSON(decodedFile)
	if err != nil {
		return nil, err
	}
	return keysFile, nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.WithStack(err)
}

// WriteKeysFile writes a keys file with the given data. An existing file is
// only replaced when overwrite is set.
func WriteKeysFile(path string, encryptedMnemonic *EncryptedMnemonic, address string,
	params *chaincfg.Params, overwrite bool) error {

	exists, err := pathExists(path)
	if err != nil {
		return err
	}
	if exists && !overwrite {
		return errors.Errorf("the keys file %s already exists", path)
	}

	err = os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return errors.WithStack(err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	keysFile := &Data{
		encryptedMnemonic: encryptedMnemonic,
		Address:           address,
		Network:           params.Name,
	}
	encoder := json.NewEncoder(file)
	err = encoder.Encode(keysFile.toJSON())
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func getAEAD(password, salt []byte) (cipher.AEAD, error) {
	threads := runtime.NumCPU()
	if threads > 255 {
		threads = 255
	}
	key := argon2.IDKey(password, salt, 1, 64*1024, uint8(threads), 32)
	aead, err := chacha20poly1305.NewX(key)
	return aead, errors.WithStack(err)
}

func decryptMnemonic(encryptedMnemonic *EncryptedMnemonic, password []byte) (string, error) {
	aead, err := getAEAD(password, encryptedMnemonic.salt)
	if err != nil {
		return "", err
	}

	if len(encryptedMnemonic.cipher) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	// Split nonce and ciphertext.
	nonce, ciphertext := encryptedMnemonic.cipher[:aead.NonceSize()], encryptedMnemonic.cipher[aead.NonceSize():]

	decrypted, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("wrong password or corrupted keys file")
	}
	return string(decrypted), nil
}
