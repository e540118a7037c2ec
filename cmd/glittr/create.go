package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/glittrfi/glittr-go/cmd/glittr/keys"
	"github.com/glittrfi/glittr-go/cmd/glittr/libglittrwallet"
	"github.com/pkg/errors"
)

func create(cfg *configFlags, conf *createConfig) error {
	var mnemonic string
	var err error
	if conf.Import {
		mnemonic, err = readMnemonic()
	} else {
		mnemonic, err = libglittrwallet.CreateMnemonic()
	}
	if err != nil {
		return err
	}

	key, err := libglittrwallet.KeyFromMnemonic(mnemonic, cfg.NetParams())
	if err != nil {
		return err
	}
	address, err := key.Address()
	if err != nil {
		return err
	}

	password, err := keys.GetNewPassword()
	if err != nil {
		return err
	}
	encryptedMnemonic, err := keys.EncryptMnemonic(mnemonic, password)
	if err != nil {
		return err
	}
	path := keysFilePath(cfg)
	err = keys.WriteKeysFile(path, encryptedMnemonic, address.EncodeAddress(), cfg.NetParams(), conf.Overwrite)
	if err != nil {
		return err
	}

	if !conf.Import {
		fmt.Println("This is your mnemonic. Write it down and keep it somewhere safe:")
		fmt.Println(mnemonic)
		fmt.Println()
	}
	fmt.Printf("Wrote the keys into %s\n", path)
	fmt.Printf("The wallet address is:\n%s\n", address.EncodeAddress())
	return nil
}

func readMnemonic() (string, error) {
	fmt.Println("Enter the mnemonic:")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "failed to read mnemonic")
	}
	return strings.Join(strings.Fields(line), " "), nil
}
