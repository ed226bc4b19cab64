package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tolelom/casinochain/config"
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/indexer"
	"github.com/tolelom/casinochain/storage"
	"github.com/tolelom/casinochain/vm"
	"github.com/tolelom/casinochain/vm/modules"
)

// node bundles the components backed by the data directory. State, blocks
// and the journal share one LevelDB under disjoint key prefixes.
type node struct {
	cfg     *config.Config
	db      *storage.LevelDB
	state   *storage.StateDB
	bc      *core.Blockchain
	emitter *events.Emitter
	idx     *indexer.Indexer
	exec    *vm.Executor
}

func openNode(cfg *config.Config) (*node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return nil, err
	}
	bc := core.NewBlockchain(storage.NewLevelBlockStore(db))
	if err := bc.Init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("blockchain init: %w", err)
	}
	state := storage.NewStateDB(db)
	emitter := events.NewEmitter()
	return &node{
		cfg:     cfg,
		db:      db,
		state:   state,
		bc:      bc,
		emitter: emitter,
		idx:     indexer.New(db, emitter),
		exec:    vm.NewExecutor(state, modules.NewRegistry(), emitter, vm.WithWorkers(cfg.Workers)),
	}, nil
}

func (n *node) Close() error { return n.db.Close() }

// ensureGenesis writes the genesis state and block #0 on a fresh chain.
func (n *node) ensureGenesis(priv crypto.PrivateKey) error {
	if n.bc.Tip() != nil {
		return nil
	}
	block, err := config.CreateGenesisBlock(n.cfg, n.state, priv)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	if err := n.bc.AddBlock(block); err != nil {
		return fmt.Errorf("add genesis: %w", err)
	}
	printSuccess("Genesis committed.")
	printField("genesis hash", block.Hash)
	return nil
}

// applyGenesisTo rebuilds the genesis state in state and checks it against
// the stored block #0.
func (n *node) applyGenesisTo(state *storage.StateDB) error {
	block0, err := n.bc.GetBlockByHeight(0)
	if err != nil {
		return fmt.Errorf("load genesis block: %w", err)
	}
	g := n.cfg.Genesis
	if g.Admin == "" {
		g.Admin = block0.Header.Proposer
	}
	root, err := g.Apply(state)
	if err != nil {
		return err
	}
	if root != block0.Header.StateRoot {
		return fmt.Errorf("%w: genesis config yields %s, chain has %s", vm.ErrRootMismatch, root, block0.Header.StateRoot)
	}
	return state.Commit()
}

// loadInbox queues every hex transaction in path. Lines that fail
// admission are reported and skipped.
func loadInbox(mempool *core.Mempool, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var added int
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), core.MaxTxSize*2+2)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var raw core.RawTx
		if err := raw.UnmarshalText([]byte(text)); err != nil {
			printWarn(fmt.Sprintf("%s:%d: %v", path, line, err))
			continue
		}
		if _, err := mempool.Add(raw); err != nil {
			printWarn(fmt.Sprintf("%s:%d: %v", path, line, err))
			continue
		}
		added++
	}
	if err := sc.Err(); err != nil {
		return added, err
	}
	return added, nil
}
