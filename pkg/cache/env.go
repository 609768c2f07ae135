package cache

import (
	"fmt"
	"os"

	"github.com/PowerDNS/lmdb-go/lmdb"
)

// sub-database names.
const (
	dbMeta          = "meta"
	dbFilesByPath   = "files_by_path"
	dbOutputsByKind = "outputs_by_kind"
	dbDiagsBySev    = "diags_by_sev"
	dbDiagsByCode   = "diags_by_code"
	dbStats         = "stats"
)

var subDBs = []string{dbMeta, dbFilesByPath, dbOutputsByKind, dbDiagsBySev, dbDiagsByCode, dbStats}

const defaultMapSize = 1 << 30 // 1 GiB; LMDB reserves virtual address space only

// openEnv opens (creating if absent) an LMDB environment at dir with
// every sub-database the cache opens.
func openEnv(dir string) (*lmdb.Env, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: mkdir lmdb dir: %w", err)
	}
	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("cache: new lmdb env: %w", err)
	}
	if err := env.SetMaxDBs(len(subDBs)); err != nil {
		env.Close()
		return nil, fmt.Errorf("cache: set max dbs: %w", err)
	}
	if err := env.SetMapSize(defaultMapSize); err != nil {
		env.Close()
		return nil, fmt.Errorf("cache: set map size: %w", err)
	}
	if err := env.Open(dir, 0, 0o644); err != nil {
		env.Close()
		return nil, fmt.Errorf("cache: open lmdb env at %q: %w", dir, err)
	}

	err = env.Update(func(txn *lmdb.Txn) error {
		for _, name := range subDBs {
			if _, err := txn.CreateDBI(name); err != nil {
				return fmt.Errorf("cache: create dbi %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// wipeEnv removes an existing LMDB environment's files so a rebuild
// starts from nothing.
func wipeEnv(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cache: wipe lmdb dir: %w", err)
	}
	return nil
}
