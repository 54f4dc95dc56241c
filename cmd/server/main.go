/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the purchase ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire the reconciliation engine (guard, cache)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite database path (default: purchases.db)
                  Use ":memory:" for an in-memory database
  -cache-ttl      Read-decision cache lifetime (default: 5m)
  -guard-timeout  Bounded wait for the mutation guard (default: 5s)
  -secret         Gateway shared secret (empty disables signature checks)
  -products       Comma-separated product:plugin mapping entries

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/purchases.db"

  # Run with signature checks and a product mapping
  ./server -secret=$GATEWAY_SECRET -products="prod_grid:Grid,prod_globe:Globe"

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
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
	"strings"
	"syscall"
	"time"

	"github.com/warp/purchase-ledger/api"
	"github.com/warp/purchase-ledger/gateway"
	"github.com/warp/purchase-ledger/ledger"
	"github.com/warp/purchase-ledger/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "purchases.db", "SQLite database path")
	cacheTTL := flag.Duration("cache-ttl", ledger.DefaultCacheTTL, "read-decision cache lifetime")
	guardWait := flag.Duration("guard-timeout", ledger.DefaultGuardWait, "bounded wait for the mutation guard")
	secret := flag.String("secret", "", "gateway shared secret (empty disables signature checks)")
	products := flag.String("products", "", "comma-separated product:plugin mapping entries")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the engine
	engine := ledger.NewEngine(store, ledger.Config{
		CacheTTL:  *cacheTTL,
		GuardWait: *guardWait,
	})

	handler := api.NewHandler(engine, gateway.Config{
		ProductPlugins: parseProducts(*products),
		SharedSecret:   *secret,
	})

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Purchase ledger listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// parseProducts parses "prod_a:Grid,prod_b:Globe" into a mapping.
// Malformed entries are skipped with a warning rather than aborting
// startup; an incomplete mapping degrades to unknown-product facts.
func parseProducts(s string) map[string]string {
	out := make(map[string]string)
	if s == "" {
		return out
	}
	for _, entry := range strings.Split(s, ",") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			log.Printf("Warning: skipping malformed product mapping %q", entry)
			continue
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out
}
