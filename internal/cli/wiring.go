// Package cli holds the cobra commands for running and operating the
// demo provisioning service.
package cli

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/api/option"

	"demodesk/internal/audit"
	"demodesk/internal/config"
	"demodesk/internal/directory"
	"demodesk/internal/genclient"
	"demodesk/internal/provisioner"
	"demodesk/internal/statestore"
	"demodesk/internal/web"
)

// deps is the fully wired service plus whatever needs closing when
// the command finishes.
type deps struct {
	svc     *provisioner.Service
	server  *web.Server
	closers []func()
}

func (d *deps) Close() {
	for _, c := range d.closers {
		c()
	}
}

// buildDeps wires the directory client, generator, state store and
// audit sink from configuration.
func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	ts, err := directory.TokenSourceFromFile(ctx, cfg.CredentialsFile, cfg.AdminSubject)
	if err != nil {
		return nil, err
	}
	dir, err := directory.NewClient(ctx, cfg.DemoOrgUnit, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}

	gen, err := genclient.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	d := &deps{closers: []func(){gen.Close}}

	var store statestore.Store
	var sink audit.Sink
	switch cfg.StoreType {
	case config.MemoryStore:
		log.Println("Running with in-memory state store")
		store = statestore.NewMemoryStore()
		sink = audit.LogSink{}
	default:
		pg, oErr := statestore.OpenPostgresStore(ctx, cfg.DBConnStr)
		if oErr != nil {
			d.Close()
			return nil, oErr
		}
		d.closers = append(d.closers, func() {
			if cErr := pg.Close(); cErr != nil {
				log.Printf("warning: failed to close state store: %v", cErr)
			}
		})
		store = pg
		sink = audit.NewPostgresSink(pg.DB())
	}

	d.svc = provisioner.NewService(dir, gen, store, sink, cfg.DemoDomain)
	d.server = web.NewServer(d.svc)
	return d, nil
}
