package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/capture"
	"github.com/kozaktomas/presence-check/internal/config"
	"github.com/kozaktomas/presence-check/internal/database"
	"github.com/kozaktomas/presence-check/internal/database/filestore"
	"github.com/kozaktomas/presence-check/internal/database/mariadb"
	"github.com/kozaktomas/presence-check/internal/database/postgres"
	"github.com/kozaktomas/presence-check/internal/embedder"
	"github.com/kozaktomas/presence-check/internal/facematch"
	"github.com/kozaktomas/presence-check/internal/location"
	"github.com/kozaktomas/presence-check/internal/metrics"
	"github.com/kozaktomas/presence-check/internal/verification"
	"github.com/prometheus/client_golang/prometheus"
)

// backends holds the opened template store and journal.
type backends struct {
	templates database.TemplateWriter
	journal   database.JournalWriter
	labels    audit.Labels
	loc       *time.Location
	closers   []func() error
}

// Close releases every connection pool opened by openBackends.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			fmt.Printf("Warning: failed to close backend: %v\n", err)
		}
	}
}

// openBackends loads and validates the configuration and opens the
// configured template store and journal.
func openBackends(ctx context.Context) (*config.Config, *backends, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	b := &backends{}
	var err error
	if b.labels, err = audit.LabelsFor(cfg.Journal.Language); err != nil {
		return nil, nil, err
	}
	if b.loc, err = cfg.Journal.TimeLocation(); err != nil {
		return nil, nil, err
	}

	var pool *postgres.Pool
	if cfg.Storage.Backend == "postgres" || cfg.Journal.Backend == "postgres" {
		pool, err = postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
	}

	switch cfg.Storage.Backend {
	case "postgres":
		b.templates = postgres.NewTemplateRepository(pool)
	default:
		store, err := filestore.NewTemplateStore(cfg.Storage.TemplatesDir)
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		b.templates = store
	}

	switch cfg.Journal.Backend {
	case "postgres":
		b.journal = postgres.NewJournalRepository(pool)
	case "mariadb":
		mpool, err := mariadb.NewPool(cfg.Journal.MariaDBDSN)
		if err != nil {
			b.Close()
			return nil, nil, fmt.Errorf("failed to connect to MariaDB: %w", err)
		}
		b.closers = append(b.closers, mpool.Close)
		repo := mariadb.NewJournalRepository(mpool, b.loc)
		if err := repo.Migrate(ctx); err != nil {
			b.Close()
			return nil, nil, err
		}
		b.journal = repo
	default:
		b.journal = filestore.NewJournal(cfg.Journal.Path, b.labels, b.loc)
	}

	return cfg, b, nil
}

// newEngine wires the verification engine from configuration. reg may be nil.
func newEngine(ctx context.Context, cfg *config.Config, b *backends, reg prometheus.Registerer) (*verification.Engine, error) {
	metric, err := facematch.ParseMetric(cfg.Face.Metric)
	if err != nil {
		return nil, err
	}
	matcher := facematch.NewMatcher(metric, cfg.Face.Tolerance)

	opts := []verification.Option{
		verification.WithPolicy(verification.Policy{Matcher: matcher, RadiusMeters: cfg.Geofence.RadiusMeters}),
	}
	if cfg.Camera.SnapshotURL != "" {
		opts = append(opts, verification.WithCamera(capture.NewSnapshotCamera(cfg.Camera.SnapshotURL)))
	}
	if cfg.Location.URL != "" {
		opts = append(opts, verification.WithLocator(location.NewHTTPLocator(cfg.Location.URL)))
	}
	if reg != nil {
		opts = append(opts, verification.WithMetrics(metrics.New(reg)))
	}
	if cfg.Face.DuplicateCheck {
		templates, err := b.templates.ListTemplates(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load templates for duplicate check: %w", err)
		}
		idx := database.NewTemplateIndex(matcher)
		if skipped := idx.Build(templates); skipped > 0 {
			fmt.Printf("Warning: %d templates skipped by the duplicate face index (dimension mismatch)\n", skipped)
		}
		fmt.Printf("Duplicate face index built with %d templates\n", idx.Count())
		opts = append(opts, verification.WithDuplicateCheck(idx))
	}

	encoder := embedder.NewClient(cfg.Embedding.URL, embedder.WithMinDetScore(cfg.Face.MinDetScore))
	return verification.NewEngine(b.templates, b.journal, encoder, opts...), nil
}
