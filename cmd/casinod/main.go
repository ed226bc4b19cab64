// Command casinod runs a casinochain development node and its operator
// tools.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tolelom/casinochain/config"
	"github.com/tolelom/casinochain/consensus"
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/log"
	"github.com/tolelom/casinochain/storage"
	"github.com/tolelom/casinochain/vm"
	"github.com/tolelom/casinochain/vm/modules"
	"github.com/tolelom/casinochain/wallet"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:          "casinod",
		Short:        "casinochain node and operator tools",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.json", "path to config file")

	root.AddCommand(
		newGenkeyCmd(&cfgPath),
		newRunCmd(&cfgPath),
		newReplayCmd(&cfgPath),
		newVerifyRoundCmd(&cfgPath),
		newEventsCmd(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to the defaults when it
// does not exist, and configures logging from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = config.DefaultConfig()
		if err := config.ApplyEnv(cfg); err != nil {
			return nil, err
		}
		printWarn(fmt.Sprintf("config file not found at %s, using defaults", path))
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetDefault(log.New(os.Stderr, level, cfg.LogFormat))
	if cfg.Password == "" {
		printWarn("CASINO_PASSWORD not set, the keystore uses an empty password")
	}
	return cfg, nil
}

func newGenkeyCmd(cfgPath *string) *cobra.Command {
	var keyPath string
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a validator key and store it encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if keyPath == "" {
				keyPath = cfg.KeyFile
			}
			if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
				return err
			}
			w, err := wallet.Generate()
			if err != nil {
				return err
			}
			if err := wallet.SaveKey(keyPath, cfg.Password, w.PrivKey()); err != nil {
				return err
			}
			printSuccess("Generated validator key.")
			printField("public key", w.PubKey())
			printField("saved to", keyPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "keystore path (defaults to key_file)")
	return cmd
}

func newRunCmd(cfgPath *string) *cobra.Command {
	var inbox string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the development sequencer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			priv, err := wallet.LoadKey(cfg.KeyFile, cfg.Password)
			if err != nil {
				return fmt.Errorf("load key: %w", err)
			}
			if len(cfg.Validators) == 0 {
				cfg.Validators = []string{priv.Public().Hex()}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			if err := n.ensureGenesis(priv); err != nil {
				return err
			}
			// A block stored before a crash may not have reached the ledger.
			recovered, err := consensus.Replay(ctx, n.bc, n.exec, n.bc.Height())
			if err != nil {
				return fmt.Errorf("recover: %w", err)
			}
			if recovered > 0 {
				printWarn(fmt.Sprintf("recovered %d stored block(s)", recovered))
			}

			mempool := core.NewMempool()
			if inbox != "" {
				added, err := loadInbox(mempool, inbox)
				if err != nil {
					return err
				}
				printInfo(fmt.Sprintf("queued %d transaction(s) from %s", added, inbox))
			}

			seq := consensus.New(cfg, n.bc, mempool, n.exec, priv)
			printSuccess("Sequencer running.")
			printField("validator", priv.Public().Hex())
			printField("height", strconv.FormatUint(n.bc.Height(), 10))
			printField("interval", cfg.BlockInterval().String())
			if err := seq.Run(ctx, cfg.BlockInterval()); err != nil {
				return err
			}
			printInfo("Shutdown complete.")
			return nil
		},
	}
	cmd.Flags().StringVar(&inbox, "inbox", "", "file of hex-encoded signed transactions to queue at startup, one per line")
	return cmd
}

func newReplayCmd(cfgPath *string) *cobra.Command {
	var to uint64
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the ledger from genesis in memory and check every block root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			if n.bc.Tip() == nil {
				return fmt.Errorf("no chain in %s", cfg.DataDir)
			}
			if to == 0 || to > n.bc.Height() {
				to = n.bc.Height()
			}

			mem, err := storage.NewMemLevelDB()
			if err != nil {
				return err
			}
			defer mem.Close()
			state := storage.NewStateDB(mem)
			if err := n.applyGenesisTo(state); err != nil {
				return err
			}
			exec := vm.NewExecutor(state, modules.NewRegistry(), nil, vm.WithWorkers(cfg.Workers), vm.WithLogger(log.Discard()))
			applied, err := consensus.Replay(cmd.Context(), n.bc, exec, to)
			if err != nil {
				printError(fmt.Sprintf("replay stopped after %d block(s)", applied))
				return err
			}
			printSuccess(fmt.Sprintf("Replayed %d block(s); every root matched.", applied))
			printField("state root", state.ComputeRoot())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&to, "to", 0, "last height to replay (defaults to the tip)")
	return cmd
}

func newVerifyRoundCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-round <game> <round>",
		Short: "Redraw a resolved table round and compare it with the journal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := games.ParseGameType(args[0])
			if err != nil {
				return err
			}
			round, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("round: %w", err)
			}
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			// Payout rules are read from the current policy.
			policy, err := n.state.GetPolicy()
			if err != nil {
				return err
			}
			r, err := n.idx.VerifyRound(n.bc, g, round, policy.Rules())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s round %d verified.", g, round))
			printField("resolved at", strconv.FormatUint(r.ResolvedAt, 10))
			printField("bettors", strconv.Itoa(len(r.Entries)))
			printField("wagered", strconv.FormatUint(r.Resolved.TotalWagered, 10))
			printField("paid", strconv.FormatUint(r.Resolved.TotalPaid, 10))
			return nil
		},
	}
}

func newEventsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "events <height>",
		Short: "Print the journaled event log of a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("height: %w", err)
			}
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			recs, err := n.idx.Events(height)
			if err != nil {
				return fmt.Errorf("block %d: %w", height, err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		},
	}
}
