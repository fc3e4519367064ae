package journal

import (
	"fmt"
	"os"

	"github.com/faktum-db/faktum/db"
	"github.com/faktum-db/faktum/fact"
)

// Compactor decides when a journal has grown enough to be worth
// replacing with a fresh snapshot, and performs that replacement. It
// is a small stateful orchestrator in the same vein as a periodic
// scheduler: a fixed policy (MinInterval) plus state carried between
// calls (lastBasis), rather than a free function recomputed from
// scratch every time.
type Compactor struct {
	SnapshotPath string
	JournalPath  string

	// MinInterval is how many committed transactions must accumulate
	// since the last compaction before the next one is worth doing. A
	// zero value compacts on every call.
	MinInterval fact.TxID

	lastBasis fact.TxID
}

// NewCompactor returns a Compactor targeting the given snapshot and
// journal paths, triggering roughly every minInterval transactions.
func NewCompactor(snapshotPath, journalPath string, minInterval fact.TxID) *Compactor {
	return &Compactor{SnapshotPath: snapshotPath, JournalPath: journalPath, MinInterval: minInterval}
}

// ShouldCompact reports whether conn's current basis has advanced far
// enough past the last compaction to warrant another one.
func (c *Compactor) ShouldCompact(conn *db.Connection) bool {
	basis := conn.Current().BasisT()
	return basis-c.lastBasis >= c.MinInterval
}

// Compact writes a fresh snapshot capturing conn's entire committed
// history, then truncates the on-disk journal: a crash between the
// two steps is safe, since loading always replays whatever journal
// tail remains on top of the (possibly stale) snapshot.
func (c *Compactor) Compact(conn *db.Connection) error {
	if err := WriteSnapshot(c.SnapshotPath, conn); err != nil {
		return fmt.Errorf("journal: compacting: %w", err)
	}
	if err := os.Truncate(c.JournalPath, 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("journal: truncating journal after compaction: %w", err)
	}
	c.lastBasis = conn.Current().BasisT()
	return nil
}
