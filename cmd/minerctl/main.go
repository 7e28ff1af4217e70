package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"minerledger/config"
	"minerledger/core/events"
	"minerledger/observability/logging"
	"minerledger/receipt"
	"minerledger/sale"
	"minerledger/state"
	"minerledger/storage"
)

var configPath = "./config.toml"

func main() {
	args := os.Args[1:]
	for len(args) >= 2 && args[0] == "--config" {
		configPath = args[1]
		args = args[2:]
	}
	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	args = args[1:]

	if command == "generate-key" {
		generateKey()
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	logger := logging.Setup("minerctl", cfg.Environment)

	switch command {
	case "init":
		runInit(cfg, logger)
	case "grant-role":
		requireArgs(args, 2, "grant-role <role> <address>")
		withState(cfg, logger, func(mgr *state.Manager, _ *sale.Engine) error {
			return mgr.GrantRole(args[0], mustAddress(args[1]))
		})
	case "revoke-role":
		requireArgs(args, 2, "revoke-role <role> <address>")
		withState(cfg, logger, func(mgr *state.Manager, _ *sale.Engine) error {
			return mgr.RevokeRole(args[0], mustAddress(args[1]))
		})
	case "add-sku":
		requireArgs(args, 8, "add-sku <keyfile> <id> <unitPrice> <stock> <paymentToken> <primaryToken> <secondaryToken> <liftTime>")
		_, caller := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			return engine.AddSKU(caller, &sale.SKU{
				ID:                   mustUint(args[1]),
				UnitPrice:            mustAmount(args[2]),
				Stock:                mustAmount(args[3]),
				PaymentToken:         mustAddress(args[4]),
				PrimaryRewardToken:   mustAddress(args[5]),
				SecondaryRewardToken: mustAddress(args[6]),
				LiftTime:             mustUint(args[7]),
			})
		})
	case "update-sku":
		requireArgs(args, 4, "update-sku <keyfile> <id> <unitPrice> <stock>")
		_, caller := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			return engine.UpdateSKU(caller, mustUint(args[1]), mustAmount(args[2]), mustAmount(args[3]))
		})
	case "sku":
		requireArgs(args, 1, "sku <id>")
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			sku, ok, err := engine.SKU(mustUint(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("sku %s not registered", args[0])
			}
			fmt.Printf("id=%d unitPrice=%s stock=%s paymentToken=%s primaryToken=%s secondaryToken=%s liftTime=%d\n",
				sku.ID, sku.UnitPrice, sku.Stock,
				strings.ToLower(sku.PaymentToken.Hex()),
				strings.ToLower(sku.PrimaryRewardToken.Hex()),
				strings.ToLower(sku.SecondaryRewardToken.Hex()),
				sku.LiftTime)
			return nil
		})
	case "purchase":
		requireArgs(args, 3, "purchase <keyfile> <skuId> <size>")
		_, buyer := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			receiptID, err := engine.Purchase(buyer, mustUint(args[1]), mustAmount(args[2]))
			if err != nil {
				return err
			}
			fmt.Printf("receiptId=%d\n", receiptID)
			return nil
		})
	case "sign-claim":
		requireArgs(args, 9, "sign-claim <keyfile> <buyer> <skuId> <primaryToken> <primaryAmount> <secondaryToken> <secondaryAmount> <previousIndex> <currentIndex>")
		key, _ := mustKey(args[0])
		auth := &sale.ClaimAuthorization{
			Buyer:           mustAddress(args[1]),
			SKUID:           mustUint(args[2]),
			PrimaryToken:    mustAddress(args[3]),
			PrimaryAmount:   mustAmount(args[4]),
			SecondaryToken:  mustAddress(args[5]),
			SecondaryAmount: mustAmount(args[6]),
			PreviousIndex:   mustAmount(args[7]),
			CurrentIndex:    mustAmount(args[8]),
		}
		sig, err := sale.SignClaim(key, auth)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("0x%s\n", hex.EncodeToString(sig))
	case "claim":
		requireArgs(args, 9, "claim <keyfile> <skuId> <primaryToken> <primaryAmount> <secondaryToken> <secondaryAmount> <previousIndex> <currentIndex> <signature>")
		_, caller := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			return engine.Claim(caller, &sale.ClaimRequest{
				SKUID:           mustUint(args[1]),
				PrimaryToken:    mustAddress(args[2]),
				PrimaryAmount:   mustAmount(args[3]),
				SecondaryToken:  mustAddress(args[4]),
				SecondaryAmount: mustAmount(args[5]),
				PreviousIndex:   mustAmount(args[6]),
				CurrentIndex:    mustAmount(args[7]),
				Signature:       mustHexBytes(args[8]),
			})
		})
	case "claim-index":
		requireArgs(args, 2, "claim-index <buyer> <skuId>")
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			index, err := engine.ClaimIndex(mustAddress(args[0]), mustUint(args[1]))
			if err != nil {
				return err
			}
			fmt.Println(index)
			return nil
		})
	case "pause":
		requireArgs(args, 1, "pause <keyfile>")
		_, caller := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			return engine.Pause(caller)
		})
	case "unpause":
		requireArgs(args, 1, "unpause <keyfile>")
		_, caller := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			return engine.Unpause(caller)
		})
	case "set-maintainer":
		requireArgs(args, 2, "set-maintainer <keyfile> <address>")
		_, caller := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			return engine.SetMaintainer(caller, mustAddress(args[1]))
		})
	case "withdraw":
		requireArgs(args, 4, "withdraw <keyfile> <token> <to> <amount>")
		_, caller := mustKey(args[0])
		withState(cfg, logger, func(_ *state.Manager, engine *sale.Engine) error {
			return engine.WithdrawFund(caller, mustAddress(args[1]), mustAddress(args[2]), mustAmount(args[3]))
		})
	case "mint-token":
		requireArgs(args, 3, "mint-token <token> <to> <amount>")
		withState(cfg, logger, func(mgr *state.Manager, _ *sale.Engine) error {
			return mgr.MintToken(mustAddress(args[0]), mustAddress(args[1]), mustAmount(args[2]))
		})
	case "approve":
		requireArgs(args, 3, "approve <keyfile> <token> <amount>")
		_, owner := mustKey(args[0])
		withState(cfg, logger, func(mgr *state.Manager, engine *sale.Engine) error {
			return mgr.ApproveToken(mustAddress(args[1]), owner, engine.Custody(), mustAmount(args[2]))
		})
	case "balance":
		requireArgs(args, 2, "balance <token> <holder>")
		withState(cfg, logger, func(mgr *state.Manager, _ *sale.Engine) error {
			balance, err := mgr.TokenBalance(mustAddress(args[0]), mustAddress(args[1]))
			if err != nil {
				return err
			}
			fmt.Println(balance)
			return nil
		})
	case "receipt":
		requireArgs(args, 1, "receipt <id>")
		withState(cfg, logger, func(mgr *state.Manager, _ *sale.Engine) error {
			owner, meta, err := mgr.Receipt(mustUint(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("owner=%s skuId=%d size=%s liftTime=%d\n",
				strings.ToLower(owner.Hex()), meta.SkuID, meta.Size, meta.LiftTime)
			return nil
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runInit applies the genesis identities from the config: admins gain
// ROLE_ADMIN, the custody identity gains the receipt minter capability, and
// the configured maintainer is installed by the first admin.
func runInit(cfg *config.Config, logger *slog.Logger) {
	withState(cfg, logger, func(mgr *state.Manager, engine *sale.Engine) error {
		admins, err := cfg.Admins()
		if err != nil {
			return err
		}
		if len(admins) == 0 {
			return fmt.Errorf("init: no admin addresses configured")
		}
		for _, admin := range admins {
			if err := mgr.GrantRole(sale.RoleAdmin, admin); err != nil {
				return err
			}
			logger.Info("granted admin role", "address", strings.ToLower(admin.Hex()))
		}
		custody, err := cfg.Custody()
		if err != nil {
			return err
		}
		if err := mgr.GrantRole(receipt.RoleMinter, custody); err != nil {
			return err
		}
		maintainer, ok, err := cfg.Maintainer()
		if err != nil {
			return err
		}
		if ok {
			if err := engine.SetMaintainer(admins[0], maintainer); err != nil {
				return err
			}
			logger.Info("maintainer installed", "address", strings.ToLower(maintainer.Hex()))
		}
		return nil
	})
}

func withState(cfg *config.Config, logger *slog.Logger, fn func(*state.Manager, *sale.Engine) error) {
	custody, err := cfg.Custody()
	if err != nil {
		fatal(err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	mgr := state.NewManager(db)
	mgr.SetEmitter(&logEmitter{logger: logger})
	engine := sale.NewEngine()
	engine.SetBackend(mgr)
	engine.SetCustody(custody)

	if err := fn(mgr, engine); err != nil {
		fatal(err)
	}
}

// logEmitter surfaces committed ledger events on the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) Emit(evt events.Event) {
	raw := events.Raw(evt)
	if raw == nil {
		l.logger.Info("event", "type", evt.EventType())
		return
	}
	attrs := make([]any, 0, 2+2*len(raw.Attributes))
	attrs = append(attrs, "type", raw.Type)
	for k, v := range raw.Attributes {
		attrs = append(attrs, k, v)
	}
	l.logger.Info("event", attrs...)
}

func generateKey() {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("private key: %s\n", hex.EncodeToString(ethcrypto.FromECDSA(key)))
	fmt.Printf("address:     %s\n", strings.ToLower(ethcrypto.PubkeyToAddress(key.PublicKey).Hex()))
}

func mustKey(path string) (*ecdsa.PrivateKey, common.Address) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fatal(fmt.Errorf("read key file: %w", err))
	}
	hexKey := strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x")
	key, err := ethcrypto.HexToECDSA(hexKey)
	if err != nil {
		fatal(fmt.Errorf("parse key file %s: %w", path, err))
	}
	return key, ethcrypto.PubkeyToAddress(key.PublicKey)
}

func mustAddress(raw string) common.Address {
	if !common.IsHexAddress(raw) {
		fatal(fmt.Errorf("invalid address %q", raw))
	}
	return common.HexToAddress(raw)
}

func mustAmount(raw string) *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		fatal(fmt.Errorf("invalid amount %q", raw))
	}
	return v
}

func mustUint(raw string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		fatal(fmt.Errorf("invalid integer %q", raw))
	}
	return v
}

func mustHexBytes(raw string) []byte {
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		fatal(fmt.Errorf("invalid hex %q", raw))
	}
	return decoded
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fatal(fmt.Errorf("usage: minerctl %s", usage))
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`minerctl [--config <path>] <command> [args]

Keys:
  generate-key

Setup:
  init
  grant-role <role> <address>
  revoke-role <role> <address>

Inventory:
  add-sku <keyfile> <id> <unitPrice> <stock> <paymentToken> <primaryToken> <secondaryToken> <liftTime>
  update-sku <keyfile> <id> <unitPrice> <stock>
  sku <id>

Trading:
  purchase <keyfile> <skuId> <size>
  sign-claim <keyfile> <buyer> <skuId> <primaryToken> <primaryAmount> <secondaryToken> <secondaryAmount> <previousIndex> <currentIndex>
  claim <keyfile> <skuId> <primaryToken> <primaryAmount> <secondaryToken> <secondaryAmount> <previousIndex> <currentIndex> <signature>
  claim-index <buyer> <skuId>
  receipt <id>

Control:
  pause <keyfile>
  unpause <keyfile>
  set-maintainer <keyfile> <address>
  withdraw <keyfile> <token> <to> <amount>

Tokens:
  mint-token <token> <to> <amount>
  approve <keyfile> <token> <amount>
  balance <token> <holder>`)
}
