// mdserver is a demo binary that plays both sides of the master data
// flow: it serves sample datasets the way an upstream master data service
// would, versions included, and it runs a Manager whose registered tables
// point back at those endpoints. Useful for poking at the cache tiers,
// version-driven resync, and the query engine from curl.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/masterdata"
	"github.com/helixdata/mdkit/source"
	"github.com/helixdata/mdkit/store"
)

func main() {
	var (
		addr     = flag.String("addr", ":8080", "listen address")
		dbPath   = flag.String("db", "", "sqlite database path (empty runs in memory)")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	log, err := logger.New(&logger.Config{Level: *logLevel, Encoding: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, *addr, *dbPath); err != nil {
		log.Error("mdserver exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(log logger.Logger, addr, dbPath string) error {
	path := dbPath
	if path == "" {
		path = ":memory:"
	}
	st, err := store.NewSQLite(log, &store.SQLiteConfig{Path: path})
	if err != nil {
		return err
	}
	defer st.Close()

	src, err := source.NewHTTP(log, &source.HTTPConfig{Timeout: 5 * time.Second})
	if err != nil {
		return err
	}

	manager, err := masterdata.New(log, nil, st, src, nil)
	if err != nil {
		return err
	}
	defer manager.Close()

	base := "http://" + hostport(addr)
	for _, def := range sampleDefinitions(base) {
		if err := manager.RegisterTable(context.Background(), def); err != nil {
			return err
		}
	}

	s := &server{
		log:     log,
		manager: manager,
		samples: newSampleStore(),
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(logger.Zap(log)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.Start()

	errCh := make(chan error, 1)
	go func() {
		log.Info("mdserver listening",
			zap.String("addr", addr),
			zap.String("db", path),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Stop the manager before the listener so no sync is cut off mid-write.
	log.Info("shutting down")
	manager.Close()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shCtx)
}

// sampleDefinitions registers the demo tables against this process's own
// sample-data endpoints.
func sampleDefinitions(base string) []masterdata.TableDefinition {
	return []masterdata.TableDefinition{
		{
			Name:         "countries",
			DisplayName:  "Countries",
			Endpoint:     base + "/api/master-data/countries",
			KeyPath:      "code",
			Indexes:      []masterdata.IndexDefinition{{Name: "by-region", KeyPath: "region"}},
			SyncInterval: 30 * time.Second,
		},
		{
			Name:         "products",
			DisplayName:  "Products",
			Endpoint:     base + "/api/master-data/products",
			KeyPath:      "sku",
			Indexes:      []masterdata.IndexDefinition{{Name: "by-category", KeyPath: "category"}},
			SyncInterval: time.Minute,
		},
	}
}

func hostport(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
