package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"spawncycle.ai/internal/persistence/configstore"
	"spawncycle.ai/internal/persistence/gdatastore"
	"spawncycle.ai/internal/persistence/indexdb"
	"spawncycle.ai/internal/sim/spawncycle"
)

const gdataAppName = "spawncycle"

// openStateStore picks where sequencer progression lives: next to the
// settings in config.yml (default) or in a gdata save slot.
func openStateStore(cfg *configstore.Store, worldName string, logger *log.Logger) (spawncycle.StateStore, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.GetString(spawncycle.KeyStateBackend, "config")))
	switch backend {
	case "", "config":
		return spawncycle.ConfigState{Config: cfg}, nil
	case "gdata":
		st, err := gdatastore.Open(gdataAppName, worldName)
		if err != nil {
			return nil, err
		}
		logger.Printf("sequencer state stored in gdata slot %q", gdataAppName)
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported %s: %s", spawncycle.KeyStateBackend, backend)
	}
}

// openMoveIndex opens the move history read model. It never affects spawn
// decisions.
func openMoveIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(indexPath(dataDir))
	default:
		return nil, fmt.Errorf("unsupported SC_INDEX_BACKEND: %s", backend)
	}
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "moves.sqlite")
}
