package main

import (
	"fmt"
)

func showAddress(cfg *configFlags) error {
	if cfg.PrivateKey == "" {
		keysFile, err := readKeysFileForNetwork(cfg)
		if err == nil && keysFile.Address != "" {
			fmt.Printf("The wallet address is:\n%s\n", keysFile.Address)
			return nil
		}
	}

	key, err := loadKey(cfg)
	if err != nil {
		return err
	}
	address, err := key.Address()
	if err != nil {
		return err
	}
	fmt.Printf("The wallet address is:\n%s\n", address.EncodeAddress())
	return nil
}
