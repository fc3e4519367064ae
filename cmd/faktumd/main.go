/*
faktumd is the database's process entrypoint: it opens a durable
connection (snapshot + journal), serves the introspection HTTP API
over it, and on shutdown compacts once more before exiting.

COMMAND-LINE FLAGS:
  -port       HTTP server port (default 8080)
  -snapshot   snapshot file path (default ./faktum.snapshot)
  -journal    journal file path (default ./faktum.journal)
  -compact-every  transactions between automatic compactions (default 1000)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting new connections, wait up to 15s for
  active requests, compact once more, then exit.

SEE ALSO:
  - journal: PersistentConnection, Compactor
  - httpapi: the HTTP surface served here
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/httpapi"
	"github.com/faktum-db/faktum/journal"
	"github.com/faktum-db/faktum/schema"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	snapshotPath := flag.String("snapshot", "./faktum.snapshot", "snapshot file path")
	journalPath := flag.String("journal", "./faktum.journal", "journal file path")
	compactEvery := flag.Int64("compact-every", 1000, "transactions between automatic compactions")
	flag.Parse()

	sc := schema.New(schema.NonStrict)

	conn, err := journal.Open(*snapshotPath, *journalPath, sc)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer conn.Close()

	compactor := journal.NewCompactor(*snapshotPath, *journalPath, fact.TxID(*compactEvery))

	handler := httpapi.NewHandler(conn)
	router := httpapi.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("faktumd listening on http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if compactor.ShouldCompact(conn.Connection()) {
				if err := compactor.Compact(conn.Connection()); err != nil {
					log.Printf("compaction failed: %v", err)
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := compactor.Compact(conn.Connection()); err != nil {
		log.Printf("final compaction failed: %v", err)
	}

	log.Println("stopped")
}
