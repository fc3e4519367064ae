/*
Package db holds the immutable database value (Db) and the mutable
connection that advances it one transaction at a time (Connection).
A Db is a point-in-time snapshot: every read method is pure and every
write goes through Connection.Transact, which plans the request with
txn.Processor and, only on success, swaps in a new Db built by cloning
the index generation via index.Indexes.Clone.

SEE ALSO:
  - txn: the transaction processor this package drives.
  - index: the ordered containers a Db wraps.
  - journal: wraps Connection with durability (append-only log + snapshot).
*/
package db

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/index"
	"github.com/faktum-db/faktum/schema"
	"github.com/faktum-db/faktum/txn"
)

// Db is an immutable, point-in-time view of the database: a basis
// transaction, the current-state indexes, the full-history indexes,
// the entity-id high-water mark, and the schema in force. Every
// method on Db is a pure read; nothing here ever mutates.
type Db struct {
	basisT   fact.TxID
	current  *index.Indexes // current facts only
	history  *index.Indexes // every datom ever asserted or retracted
	nextID   fact.EntityID
	schema   schema.Schema
}

// Empty returns a new, empty database starting its entity-id
// allocation at 1 (0 is the reserved null entity).
func Empty(sc schema.Schema) *Db {
	return &Db{
		basisT:  fact.GenesisTx,
		current: index.Empty(true),
		history: index.Empty(false),
		nextID:  1,
		schema:  sc,
	}
}

// BasisT reports the transaction id this snapshot reflects.
func (d *Db) BasisT() fact.TxID { return d.basisT }

// NextEntityID reports the smallest entity id not yet allocated.
func (d *Db) NextEntityID() fact.EntityID { return d.nextID }

// Schema returns the attribute declarations in force.
func (d *Db) Schema() schema.Schema { return d.schema }

// Size reports how many datoms are currently asserted.
func (d *Db) Size() int { return d.current.Len() }

// Indexes exposes the current generation's ordered containers for
// the query package's index selection and scanning. Read-only: query
// never calls a mutating method on the result.
func (d *Db) Indexes() *index.Indexes { return d.current }

// --- txn.Snapshot implementation, consulted by the processor ---

func (d *Db) EntityExists(e fact.EntityID) bool {
	return len(d.current.DatomsForEntity(e)) > 0
}

func (d *Db) DatomsForEntityAttr(e fact.EntityID, a fact.Attribute) []fact.Datom {
	return d.current.DatomsForEntityAttr(e, a)
}

func (d *Db) DatomsForEntity(e fact.EntityID) []fact.Datom {
	return d.current.DatomsForEntity(e)
}

func (d *Db) DatomsReferencingEntity(e fact.EntityID) []fact.Datom {
	return d.current.DatomsReferencingEntity(e)
}

func (d *Db) DatomForAttrValue(a fact.Attribute, v fact.Value) (fact.Datom, bool) {
	matches := d.current.DatomsForAttrValue(a, v)
	if len(matches) == 0 {
		return fact.Datom{}, false
	}
	return matches[0], true
}

var _ txn.Snapshot = (*Db)(nil)

// --- plain read API, per spec ---

// GetOne returns the current value for (e, a) with the highest
// assertion Tx; among values asserted in the same transaction (possible
// for cardinality-many attributes) the first in index (value) order wins.
func (d *Db) GetOne(e fact.EntityID, a fact.Attribute) (fact.Value, bool) {
	datoms := d.current.DatomsForEntityAttr(e, a)
	if len(datoms) == 0 {
		return fact.Value{}, false
	}
	best := datoms[0]
	for _, dm := range datoms[1:] {
		if dm.Tx > best.Tx {
			best = dm
		}
	}
	return best.V, true
}

// Get returns every current value for (e, a), in index order (spec
// leaves multi-value ordering for cardinality-many unspecified).
func (d *Db) Get(e fact.EntityID, a fact.Attribute) []fact.Value {
	datoms := d.current.DatomsForEntityAttr(e, a)
	out := make([]fact.Value, len(datoms))
	for i, dm := range datoms {
		out[i] = dm.V
	}
	return out
}

// Entity returns every current (attribute, value) datom for e.
func (d *Db) Entity(e fact.EntityID) []fact.Datom {
	return d.current.DatomsForEntity(e)
}

// EntitiesWithAttr returns the distinct entities currently carrying
// any value for attribute a.
func (d *Db) EntitiesWithAttr(a fact.Attribute) []fact.EntityID {
	datoms := d.current.DatomsForAttr(a)
	seen := make(map[fact.EntityID]bool, len(datoms))
	var out []fact.EntityID
	for _, dm := range datoms {
		if !seen[dm.E] {
			seen[dm.E] = true
			out = append(out, dm.E)
		}
	}
	return out
}

// EntityWithAttrValue returns the entity currently holding value v
// for unique attribute a, if any.
func (d *Db) EntityWithAttrValue(a fact.Attribute, v fact.Value) (fact.EntityID, bool) {
	dm, ok := d.DatomForAttrValue(a, v)
	if !ok {
		return fact.NullEntity, false
	}
	return dm.E, true
}

// EntitiesWithAttrValue returns every entity currently holding value v
// for (non-unique) attribute a.
func (d *Db) EntitiesWithAttrValue(a fact.Attribute, v fact.Value) []fact.EntityID {
	datoms := d.current.DatomsForAttrValue(a, v)
	out := make([]fact.EntityID, len(datoms))
	for i, dm := range datoms {
		out[i] = dm.E
	}
	return out
}

// ReferencingEntities returns every entity with a ref attribute
// currently pointing at e.
func (d *Db) ReferencingEntities(e fact.EntityID) []fact.Datom {
	return d.current.DatomsReferencingEntity(e)
}

// ReferencingViaAttr returns every entity whose attribute a currently
// points at e.
func (d *Db) ReferencingViaAttr(e fact.EntityID, a fact.Attribute) []fact.Datom {
	return d.current.DatomsReferencingViaAttr(e, a)
}

// WithSchema returns a Db identical to d but governed by sc from this
// point forward. It does not validate existing data against sc;
// callers that need that guarantee should do it explicitly before
// switching.
func (d *Db) WithSchema(sc schema.Schema) *Db {
	return &Db{basisT: d.basisT, current: d.current, history: d.history, nextID: d.nextID, schema: sc}
}

// maintainsAVET reports whether a's current generation should carry
// an AVET entry for this attribute: when the schema marks it Indexed
// or Unique, or (non-strict mode, undeclared attribute) by default so
// ad hoc attributes remain queryable by value. A declared attribute
// that is neither Indexed nor Unique gets no AVET entry, whatever its
// value type.
func (d *Db) maintainsAVET(a fact.Attribute) bool {
	def, ok := d.schema.Lookup(a)
	if !ok {
		return d.schema.Strictness() != schema.Strict
	}
	return def.Indexed || def.Unique != schema.UniqueNone
}

// applyDatoms returns the current/history Indexes that result from
// filing every datom in order: asserted datoms are inserted, retracted
// datoms are removed from current but always inserted into history
// (history never forgets that a fact existed).
func (d *Db) applyDatoms(datoms []fact.Datom) (*index.Indexes, *index.Indexes) {
	nextCurrent := d.current.Clone()
	nextHistory := d.history.Clone()
	for _, dm := range datoms {
		nextHistory.Insert(dm, true)
		if dm.Added {
			nextCurrent.Insert(dm, d.maintainsAVET(dm.A))
		} else if live, ok := nextCurrent.Current(dm.Key()); ok {
			nextCurrent.Remove(live, d.maintainsAVET(dm.A))
		}
	}
	return nextCurrent, nextHistory
}

// advance returns the Db that results from committing result at txID.
func (d *Db) advance(txID fact.TxID, result txn.Result) *Db {
	nextCurrent, nextHistory := d.applyDatoms(result.Datoms)
	return &Db{
		basisT:  txID,
		current: nextCurrent,
		history: nextHistory,
		nextID:  result.NextEntityID,
		schema:  d.schema,
	}
}

// asOfHistory rebuilds a read-only Db reflecting every datom with
// Tx <= asOf, used by time-travel queries. It walks the full history
// index once; callers needing many asOf snapshots should cache the
// result, since this is O(history size).
func (d *Db) asOfHistory(asOf fact.TxID) *Db {
	current := index.Empty(true)
	history := index.Empty(false)
	d.history.ScanEAVT(fact.Datom{}, func(dm fact.Datom) bool {
		if dm.Tx > asOf {
			return true
		}
		history.Insert(dm, true)
		if dm.Added {
			current.Insert(dm, d.maintainsAVET(dm.A))
		} else if live, ok := current.Current(dm.Key()); ok {
			current.Remove(live, d.maintainsAVET(dm.A))
		}
		return true
	})
	return &Db{basisT: asOf, current: current, history: history, nextID: d.nextID, schema: d.schema}
}

// sinceHistory rebuilds a Db containing only datoms with Tx > since,
// i.e. what changed after that point. Its "current" facts are those
// later datoms still standing, which is of limited use on its own;
// callers almost always want TxData/EntityHistory alongside it.
func (d *Db) sinceHistory(since fact.TxID) *Db {
	current := index.Empty(true)
	history := index.Empty(false)
	d.history.ScanEAVT(fact.Datom{}, func(dm fact.Datom) bool {
		if dm.Tx <= since {
			return true
		}
		history.Insert(dm, true)
		if dm.Added {
			current.Insert(dm, d.maintainsAVET(dm.A))
		} else if live, ok := current.Current(dm.Key()); ok {
			current.Remove(live, d.maintainsAVET(dm.A))
		}
		return true
	})
	return &Db{basisT: d.basisT, current: current, history: history, nextID: d.nextID, schema: d.schema}
}

// Stats summarizes a Db for operational introspection.
type Stats struct {
	BasisT       fact.TxID
	DatomCount   int
	EntityCount  int
	HistorySize  int
}

// Stats reports basic counts over the current generation.
func (d *Db) Stats() Stats {
	seen := make(map[fact.EntityID]bool)
	d.current.ScanEAVT(fact.Datom{}, func(dm fact.Datom) bool {
		seen[dm.E] = true
		return true
	})
	return Stats{
		BasisT:      d.basisT,
		DatomCount:  d.current.Len(),
		EntityCount: len(seen),
		HistorySize: d.history.Len(),
	}
}

// Connection is the mutable holder of database state: one goroutine
// at a time may call Transact, guarded by mu, and reads always go
// through whatever Db is currently installed. This is the in-memory
// analogue of journal.PersistentConnection, which wraps the same
// pattern with durable logging.
type Connection struct {
	mu       sync.RWMutex
	db       *Db
	registry *txn.Registry
	proc     *txn.Processor
	nextTx   fact.TxID
	log      []LogEntry // append-only, index i holds the entry for tx i+1
}

// LogEntry records what one committed transaction did, the unit both
// Connection.TxData and the journal package persist. Instant is the
// commit-time wall clock reading; it is where :db/txInstant is kept
// (§5's open-question resolution), rather than as a synthetic datom
// asserted against a per-tx entity.
type LogEntry struct {
	TxID    fact.TxID
	Instant time.Time
	Datoms  []fact.Datom
}

// wireLogEntry mirrors LogEntry's wire shape with Instant as epoch
// milliseconds, matching how a TagInstant Value is encoded elsewhere
// in the journal/snapshot format rather than Go's default RFC3339
// time.Time encoding.
type wireLogEntry struct {
	TxID    fact.TxID    `json:"txId"`
	Instant int64        `json:"instant"`
	Datoms  []fact.Datom `json:"datoms"`
}

// MarshalJSON encodes a LogEntry as the journal line format in §6:
// {"txId": N, "instant": M, "datoms": [...]}.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireLogEntry{TxID: e.TxID, Instant: e.Instant.UnixMilli(), Datoms: e.Datoms})
}

// UnmarshalJSON decodes the §6 journal line format back into a LogEntry.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var w wireLogEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.TxID = w.TxID
	e.Instant = time.UnixMilli(w.Instant).UTC()
	e.Datoms = w.Datoms
	return nil
}

// Create returns a new Connection over an empty database governed by
// sc.
func Create(sc schema.Schema) *Connection {
	registry := txn.DefaultRegistry()
	return &Connection{
		db:       Empty(sc),
		registry: registry,
		proc:     txn.NewProcessor(registry),
		nextTx:   fact.GenesisTx + 1,
	}
}

// Registry exposes the transaction-function registry so callers can
// register additional functions before issuing transactions.
func (c *Connection) Registry() *txn.Registry { return c.registry }

// Current returns the latest committed Db. Safe for concurrent use.
func (c *Connection) Current() *Db {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Transact plans and commits ops as one new transaction. On success it
// returns the new Db and the temp-id bindings; on failure the
// connection's current Db is left exactly as it was, per the
// processor's pure-planning guarantee.
func (c *Connection) Transact(ops []txn.Op) (*Db, map[string]fact.EntityID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	txID := c.nextTx
	result, err := c.proc.Process(c.db, txID, c.db.nextID, ops)
	if err != nil {
		return nil, nil, fmt.Errorf("db: transact: %w", err)
	}

	next := c.db.advance(txID, result)
	c.db = next
	c.nextTx++
	c.log = append(c.log, LogEntry{TxID: txID, Instant: time.Now().UTC(), Datoms: result.Datoms})
	return next, result.TempIDs, nil
}

// AsOf returns a read-only Db reflecting the database as of txID
// (inclusive).
func (c *Connection) AsOf(txID fact.TxID) *Db {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db.asOfHistory(txID)
}

// Since returns a read-only Db containing only what changed after
// txID.
func (c *Connection) Since(txID fact.TxID) *Db {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db.sinceHistory(txID)
}

// EntityHistory returns every datom (assertion or retraction) ever
// filed against e, in transaction order.
func (c *Connection) EntityHistory(e fact.EntityID) []fact.Datom {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []fact.Datom
	c.db.history.ScanEAVT(fact.Datom{E: e}, func(dm fact.Datom) bool {
		if dm.E != e {
			return false
		}
		out = append(out, dm)
		return true
	})
	return out
}

// AttrHistory returns every datom ever filed against e for attribute
// a, in transaction order: entityHistory(e) filtered to one attribute.
func (c *Connection) AttrHistory(e fact.EntityID, a fact.Attribute) []fact.Datom {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []fact.Datom
	c.db.history.ScanEAVT(fact.Datom{E: e}, func(dm fact.Datom) bool {
		if dm.E != e {
			return false
		}
		if dm.A == a {
			out = append(out, dm)
		}
		return true
	})
	return out
}

// TxData returns the datoms filed by a single transaction.
func (c *Connection) TxData(txID fact.TxID) ([]fact.Datom, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := int(txID) - int(fact.GenesisTx) - 1
	if idx < 0 || idx >= len(c.log) {
		return nil, false
	}
	return c.log[idx].Datoms, true
}

// TxEntry returns the full log entry filed for txID, including the
// :db/txInstant reading recorded at commit time. Callers that only
// need the datoms should use TxData; the journal package needs
// Instant too, to keep it on disk.
func (c *Connection) TxEntry(txID fact.TxID) (LogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := int(txID) - int(fact.GenesisTx) - 1
	if idx < 0 || idx >= len(c.log) {
		return LogEntry{}, false
	}
	return c.log[idx], true
}

// AllTxIDs returns every committed transaction id, oldest first.
func (c *Connection) AllTxIDs() []fact.TxID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]fact.TxID, len(c.log))
	for i, entry := range c.log {
		out[i] = entry.TxID
	}
	return out
}

// Stats reports basic counts for the connection's current Db.
func (c *Connection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db.Stats()
}
