/*
Package journal adds durability to db.Connection: an append-only
journal file (one JSON log entry per line, flushed before a commit is
acknowledged), a snapshot file that bundles a basis and the log up to
it, and compaction that replaces the journal with a fresh snapshot.
Replay never goes through the transaction processor -- recorded
history is taken as ground truth, per the persistence model.

SEE ALSO:
  - db: Connection and the Restore entrypoint this package drives.
  - fact: the Datom wire format each journal line is built from.
*/
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/faktum-db/faktum/db"
)

// appendLine writes one JSON-encoded LogEntry to f, terminated by a
// newline, and flushes (fsync) before returning, so that a successful
// return means the entry is durable.
func appendLine(f *os.File, entry db.LogEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal: encoding log entry: %w", err)
	}
	encoded = append(encoded, '\n')
	if _, err := f.Write(encoded); err != nil {
		return fmt.Errorf("journal: writing log entry: %w", err)
	}
	return f.Sync()
}

// readEntries decodes every line of the journal file at path as a
// db.LogEntry, in file order. A missing file is not an error: it
// reads as an empty journal.
func readEntries(path string) ([]db.LogEntry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", path, err)
	}
	defer f.Close()

	var out []db.LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry db.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("journal: decoding %s: %w", path, err)
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: reading %s: %w", path, err)
	}
	return out, nil
}
