package db

import (
	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/schema"
	"github.com/faktum-db/faktum/txn"
)

// Restore rebuilds a Connection directly from a sequence of already
// -committed log entries, bypassing the transaction processor
// entirely: per the persistence model, replayed history is ground
// truth, not a request to re-validate. Entries are applied to the
// indexes in order; the resulting nextEntityId is one past the
// largest entity id any datom mentions, and basisT is the last
// entry's TxID (GenesisTx if entries is empty).
func Restore(sc schema.Schema, entries []LogEntry) *Connection {
	d := Empty(sc)
	nextTx := fact.GenesisTx + 1

	for _, entry := range entries {
		nextCurrent, nextHistory := d.applyDatoms(entry.Datoms)
		nextID := d.nextID
		for _, dm := range entry.Datoms {
			if dm.E >= nextID {
				nextID = dm.E + 1
			}
			if ref, ok := dm.V.AsRef(); ok && ref >= nextID {
				nextID = ref + 1
			}
		}
		d = &Db{
			basisT:  entry.TxID,
			current: nextCurrent,
			history: nextHistory,
			nextID:  nextID,
			schema:  sc,
		}
		nextTx = entry.TxID + 1
	}

	registry := txn.DefaultRegistry()
	return &Connection{
		db:       d,
		registry: registry,
		proc:     txn.NewProcessor(registry),
		nextTx:   nextTx,
		log:      append([]LogEntry{}, entries...),
	}
}
