package main

import (
	"fmt"
	"os"

	"github.com/glittrfi/glittr-go/infrastructure/config"
	"github.com/glittrfi/glittr-go/version"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	createSubCmd           = "create"
	addressSubCmd          = "address"
	freeMintSubCmd         = "free-mint"
	purchaseBurnSwapSubCmd = "purchase-burn-swap"
	preallocatedSubCmd     = "preallocated"
	mintSubCmd             = "mint"
	burnSubCmd             = "burn"
	swapSubCmd             = "swap"
	transferSubCmd         = "transfer"
	statusSubCmd           = "status"
	historySubCmd          = "history"
	decodeSubCmd           = "decode"
)

type walletFlags struct {
	PrivateKey string `long:"private-key" env:"GLITTR_PRIVATE_KEY" default-mask:"-" description:"WIF private key of the wallet (takes precedence over the keys file)"`
	KeysFile   string `long:"keys-file" env:"GLITTR_KEYS_FILE" description:"Keys file location (default: <appdir>/<network>/keys.json)"`
}

type configFlags struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	config.NetworkFlags `group:"Network Options"`
	config.ServiceFlags `group:"Service Options"`
	config.FeeFlags     `group:"Fee Options"`
	config.PollFlags    `group:"Polling Options"`
	config.AppFlags     `group:"Application Options"`
	walletFlags         `group:"Wallet Options"`
}

type createConfig struct {
	Import    bool `long:"import" description:"Import an existing mnemonic instead of generating a new one"`
	Overwrite bool `long:"overwrite" description:"Replace an existing keys file"`
}

type addressConfig struct{}

type submitFlags struct {
	DryRun bool `long:"dry-run" description:"Print the signed transaction instead of submitting it"`
}

type freeMintConfig struct {
	SupplyCap     string `long:"supply-cap" description:"Maximum supply (unlimited when omitted)"`
	AmountPerMint uint64 `long:"amount-per-mint" required:"true" description:"Units issued by every mint"`
	Divisibility  uint8  `long:"divisibility" default:"18" description:"Number of decimal places (at most 18)"`
	LiveTime      uint64 `long:"live-time" default:"0" description:"Block height from which minting is open"`
	submitFlags
}

type purchaseBurnSwapConfig struct {
	InputAsset     string  `long:"input-asset" default:"raw_btc" description:"Asset paid in: raw_btc, metaprotocol or a contract id block:tx"`
	TransferScheme string  `long:"transfer-scheme" default:"burn" description:"burn, or purchase:<address> to pay the input asset to address"`
	Ratio          float64 `long:"ratio" description:"Fixed ratio of output to input units"`
	OraclePubKey   string  `long:"oracle-pubkey" description:"Hex public key of the oracle setting the ratio (instead of --ratio)"`
	OracleAssetID  string  `long:"oracle-asset-id" description:"Asset id the oracle prices"`
	submitFlags
}

type preallocatedConfig struct {
	submitFlags
}

type oracleFlags struct {
	OracleSignature  string `long:"oracle-signature" description:"Hex signature of the oracle message"`
	OracleInput      string `long:"oracle-input" description:"Outpoint txid:vout the oracle message commits to"`
	OracleMinInValue uint64 `long:"oracle-min-in-value" description:"Minimum input value of the oracle message"`
	OracleOutValue   uint64 `long:"oracle-out-value" description:"Output value of the oracle message"`
	OracleAssetID    string `long:"oracle-asset-id" description:"Asset id of the oracle message"`
}

type mintConfig struct {
	Contract string `long:"contract" required:"true" description:"Contract id block:tx"`
	Pointer  uint32 `long:"pointer" default:"0" description:"Output receiving the minted units"`
	oracleFlags
	submitFlags
}

type burnConfig struct {
	Contract string `long:"contract" required:"true" description:"Contract id block:tx"`
	submitFlags
}

type swapConfig struct {
	Contract string `long:"contract" required:"true" description:"Contract id block:tx"`
	submitFlags
}

type transferConfig struct {
	Asset    string   `long:"asset" required:"true" description:"Contract id block:tx of the transferred asset"`
	Amounts  []uint64 `long:"amount" required:"true" description:"Amount for the next output (repeatable)"`
	NOutputs uint32   `long:"n-outputs" description:"Number of outputs the amounts are spread over (default: number of amounts)"`
	submitFlags
}

type statusConfig struct {
	TxID string `long:"txid" required:"true" description:"Id of the transaction to wait for"`
}

type historyConfig struct {
	Limit int `long:"limit" default:"20" description:"Show at most this many operations (0 shows all)"`
}

type decodeConfig struct {
	Transaction string `long:"transaction" description:"Hex serialized transaction"`
	TxID        string `long:"txid" description:"Id of a transaction to fetch from the chain service"`
}

// serviceCommands need the chain and indexer services.
var serviceCommands = map[string]bool{
	freeMintSubCmd:         true,
	purchaseBurnSwapSubCmd: true,
	preallocatedSubCmd:     true,
	mintSubCmd:             true,
	burnSubCmd:             true,
	swapSubCmd:             true,
	transferSubCmd:         true,
	statusSubCmd:           true,
}

func parseCommandLine() (subCommand string, cfg *configFlags, commandConfig interface{}) {
	err := config.LoadEnvFiles()
	if err != nil {
		printErrorAndExit(err)
	}

	cfg = &configFlags{}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	parser.SubcommandsOptional = true

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{createSubCmd, "Creates a new wallet", "Creates a mnemonic and stores it encrypted in the keys file", &createConfig{}},
		{addressSubCmd, "Shows the wallet address", "Shows the P2PKH address funding operations", &addressConfig{}},
		{freeMintSubCmd, "Creates a free mint contract", "Creates a contract anyone can mint a fixed amount from", &freeMintConfig{}},
		{purchaseBurnSwapSubCmd, "Creates a purchase/burn/swap contract", "Creates a contract issuing units against an input asset", &purchaseBurnSwapConfig{}},
		{preallocatedSubCmd, "Creates a preallocated contract", "Creates a contract with a preallocated supply", &preallocatedConfig{}},
		{mintSubCmd, "Mints from a contract", "Calls mint on a free mint or purchase contract", &mintConfig{}},
		{burnSubCmd, "Burns into a contract", "Calls burn on a contract", &burnConfig{}},
		{swapSubCmd, "Swaps through a contract", "Calls swap on a contract", &swapConfig{}},
		{transferSubCmd, "Transfers asset units", "Transfers units of an asset to the transaction outputs", &transferConfig{}},
		{statusSubCmd, "Waits for a submitted transaction", "Polls the indexer until it has processed a submitted transaction", &statusConfig{}},
		{historySubCmd, "Lists submitted operations", "Lists the operations recorded in the local journal", &historyConfig{}},
		{decodeSubCmd, "Decodes a Glittr transaction", "Prints the Glittr message embedded in a transaction", &decodeConfig{}},
	}
	commandConfigs := make(map[string]interface{}, len(commands))
	for _, command := range commands {
		_, err := parser.AddCommand(command.name, command.short, command.long, command.data)
		if err != nil {
			printErrorAndExit(errors.WithStack(err))
		}
		commandConfigs[command.name] = command.data
	}

	_, err = parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println("glittr version", version.Version())
		os.Exit(0)
	}
	if parser.Command.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	subCommand = parser.Command.Active.Name
	err = cfg.ResolveNetwork(parser)
	if err != nil {
		os.Exit(1)
	}
	err = validateConfig(subCommand, cfg)
	if err != nil {
		printErrorAndExit(err)
	}
	return subCommand, cfg, commandConfigs[subCommand]
}

func validateConfig(subCommand string, cfg *configFlags) error {
	err := config.Validate(&cfg.AppFlags)
	if err != nil {
		return err
	}
	err = config.Validate(&cfg.PollFlags)
	if err != nil {
		return err
	}
	if serviceCommands[subCommand] {
		err = config.Validate(&cfg.ServiceFlags)
		if err != nil {
			return errors.Wrap(err, "check --chain-api and --indexer-api (or GLITTR_CHAIN_API and GLITTR_INDEXER_API)")
		}
	}
	return nil
}
