package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/glittrfi/glittr-go/infrastructure/logger"
	"github.com/pkg/errors"
)

func main() {
	subCmd, cfg, commandConfig := parseCommandLine()

	err := initLog(&cfg.AppFlags)
	if err != nil {
		printErrorAndExit(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, subCmd, cfg, commandConfig)
	stop()
	logger.BackendLog.Close()

	if err != nil {
		printErrorAndExit(err)
	}
}

func run(ctx context.Context, subCmd string, cfg *configFlags, commandConfig interface{}) error {
	log.Debugf("Running %s on %s", subCmd, cfg.NetParams().Name)

	switch subCmd {
	case createSubCmd:
		return create(cfg, commandConfig.(*createConfig))
	case addressSubCmd:
		return showAddress(cfg)
	case freeMintSubCmd:
		return freeMint(ctx, cfg, commandConfig.(*freeMintConfig))
	case purchaseBurnSwapSubCmd:
		return purchaseBurnSwap(ctx, cfg, commandConfig.(*purchaseBurnSwapConfig))
	case preallocatedSubCmd:
		return preallocated(ctx, cfg, commandConfig.(*preallocatedConfig))
	case mintSubCmd:
		return mint(ctx, cfg, commandConfig.(*mintConfig))
	case burnSubCmd:
		return burn(ctx, cfg, commandConfig.(*burnConfig))
	case swapSubCmd:
		return swap(ctx, cfg, commandConfig.(*swapConfig))
	case transferSubCmd:
		return transfer(ctx, cfg, commandConfig.(*transferConfig))
	case statusSubCmd:
		return status(ctx, cfg, commandConfig.(*statusConfig))
	case historySubCmd:
		return history(cfg, commandConfig.(*historyConfig))
	case decodeSubCmd:
		return decode(ctx, cfg, commandConfig.(*decodeConfig))
	}
	return errors.Errorf("Unknown sub-command '%s'", subCmd)
}
