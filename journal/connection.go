package journal

import (
	"fmt"
	"os"
	"sync"

	"github.com/faktum-db/faktum/db"
	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/schema"
	"github.com/faktum-db/faktum/txn"
)

// PersistentConnection wraps db.Connection with an append-only
// journal: every committed transaction is also flushed to disk before
// Transact returns, so a process restart can recover the full history
// via Open.
//
// Ordering note: Transact commits to the in-memory Connection first
// and flushes to the journal second, the reverse of "journal before
// applying" a write-ahead log would do. Connection's Transact does
// planning and committing as one atomic step with no hook in between,
// so splitting them would mean duplicating the processor's commit
// logic here. The consequence is narrow: a crash or journal-write
// failure between the in-memory commit and the flush loses exactly
// that one transaction from durable storage while this process's own
// view of the data still reflects it, and the failure is always
// surfaced to the caller as a Transact error rather than silently
// swallowed.
type PersistentConnection struct {
	mu      sync.Mutex
	conn    *db.Connection
	journal *os.File
}

// Open loads whatever snapshot and journal tail exist at the given
// paths (either or both may be absent, read as empty), replays them
// through db.Restore, and returns a PersistentConnection ready to
// accept further transactions. The journal file is opened for
// appending; existing content is left in place.
func Open(snapshotPath, journalPath string, sc schema.Schema) (*PersistentConnection, error) {
	snap, err := loadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}
	tail, err := readEntries(journalPath)
	if err != nil {
		return nil, err
	}

	entries := make([]db.LogEntry, 0, len(snap.Log)+len(tail))
	entries = append(entries, snap.Log...)
	for _, e := range tail {
		if e.TxID > snap.BasisT {
			entries = append(entries, e)
		}
	}

	conn := db.Restore(sc, entries)

	f, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", journalPath, err)
	}

	return &PersistentConnection{conn: conn, journal: f}, nil
}

// Transact commits ops through the wrapped Connection and, only on
// success, appends and flushes the resulting log entry. A flush
// failure is returned to the caller as the Transact error.
func (pc *PersistentConnection) Transact(ops []txn.Op) (*db.Db, map[string]fact.EntityID, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	next, ids, err := pc.conn.Transact(ops)
	if err != nil {
		return nil, nil, err
	}
	entry, _ := pc.conn.TxEntry(next.BasisT())
	if err := appendLine(pc.journal, entry); err != nil {
		return nil, nil, fmt.Errorf("journal: persisting transaction %d: %w", next.BasisT(), err)
	}
	return next, ids, nil
}

// Current returns the latest committed Db.
func (pc *PersistentConnection) Current() *db.Db { return pc.conn.Current() }

// Stats reports basic counts for the current Db.
func (pc *PersistentConnection) Stats() db.Stats { return pc.conn.Stats() }

// Connection exposes the wrapped in-memory Connection for read
// operations (AsOf, Since, EntityHistory, AttrHistory, TxData) that
// PersistentConnection does not duplicate.
func (pc *PersistentConnection) Connection() *db.Connection { return pc.conn }

// Close releases the journal file handle.
func (pc *PersistentConnection) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.journal.Close()
}
