package savestore

import (
	"fmt"
	"path/filepath"

	"hashquest/internal/savestore/bolt"
	"hashquest/internal/savestore/sqlite"
)

// Backend kinds accepted by OpenBackend
const (
	KindBolt   = "bolt"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

// OpenBackend opens the named backend kind inside dataDir
func OpenBackend(kind, dataDir string) (Backend, error) {
	switch kind {
	case "", KindBolt:
		return bolt.Open(filepath.Join(dataDir, "hashquest.db"))
	case KindSQLite:
		return sqlite.Open(filepath.Join(dataDir, "hashquest.sqlite"))
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown save backend %q (want %s, %s or %s)", kind, KindBolt, KindSQLite, KindMemory)
	}
}
