package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/faktum-db/faktum/db"
	"github.com/faktum-db/faktum/fact"
)

// snapshotFile is the on-disk shape written by WriteSnapshot, matching
// the §6 snapshot document: a basis, the current facts standing at
// that basis (kept for introspection and format fidelity), and the
// full log up to and including the basis. Loading only ever needs Log
// -- CurrentFacts is never consulted by loadSnapshot or Open, since replaying
// Log through db.Restore already reconstructs current and history
// state in one pass and keeps snapshot loading on the same code path
// as journal replay.
type snapshotFile struct {
	BasisT       fact.TxID     `json:"basisT"`
	NextEntityID fact.EntityID `json:"nextEntityId"`
	CurrentFacts []fact.Datom  `json:"currentFacts"`
	Log          []db.LogEntry `json:"txLog"`
}

// WriteSnapshot serializes conn's current state to path, atomically:
// it writes to a temp file in the same directory and renames over
// path, so a crash mid-write never leaves a corrupt snapshot in place.
func WriteSnapshot(path string, conn *db.Connection) error {
	d := conn.Current()
	ids := conn.AllTxIDs()
	log := make([]db.LogEntry, 0, len(ids))
	for _, id := range ids {
		entry, _ := conn.TxEntry(id)
		log = append(log, entry)
	}

	var current []fact.Datom
	d.Indexes().ScanEAVT(fact.Datom{}, func(dm fact.Datom) bool {
		current = append(current, dm)
		return true
	})

	snap := snapshotFile{
		BasisT:       d.BasisT(),
		NextEntityID: d.NextEntityID(),
		CurrentFacts: current,
		Log:          log,
	}

	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("journal: encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("journal: creating snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("journal: writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("journal: syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("journal: closing snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("journal: installing snapshot: %w", err)
	}
	return nil
}

// loadSnapshot reads and decodes the snapshot at path. A missing file
// is not an error: it reads as an empty snapshot (basis GenesisTx, no
// log).
func loadSnapshot(path string) (snapshotFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return snapshotFile{BasisT: fact.GenesisTx}, nil
	}
	if err != nil {
		return snapshotFile{}, fmt.Errorf("journal: reading snapshot %s: %w", path, err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshotFile{}, fmt.Errorf("journal: decoding snapshot %s: %w", path, err)
	}
	return snap, nil
}
