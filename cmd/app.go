package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/config"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/database/mariadb"
	"github.com/kozaktomas/attendance-scanner/internal/database/postgres"
	"github.com/kozaktomas/attendance-scanner/internal/roster"
)

// app holds the stores and services shared by all commands.
type app struct {
	cfg        *config.Config
	pool       *postgres.Pool
	rosterPool *mariadb.Pool

	records    *postgres.RecordRepository
	classes    *postgres.ClassRepository
	identities *postgres.IdentityRepository

	tracker *attendance.Tracker
	roster  *roster.Service
}

// openApp connects to PostgreSQL (and MariaDB when ROSTER_DATABASE_URL is
// set) and builds the tracker and roster service.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	a := &app{
		cfg:        cfg,
		pool:       pool,
		records:    postgres.NewRecordRepository(pool),
		classes:    postgres.NewClassRepository(pool),
		identities: postgres.NewIdentityRepository(pool),
	}

	var rosterReader database.RosterReader = a.classes
	if cfg.Roster.DatabaseURL != "" {
		rosterPool, err := mariadb.NewPool(cfg.Roster.DatabaseURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to roster database: %w", err)
		}
		source, err := mariadb.NewRosterSource(rosterPool, cfg.Roster.Table)
		if err != nil {
			rosterPool.Close()
			pool.Close()
			return nil, err
		}
		a.rosterPool = rosterPool
		rosterReader = source
	}

	a.tracker = attendance.NewTracker(a.records, rosterReader,
		attendance.WithDefaultLateTime(cfg.Matching.DefaultLateTime))
	a.roster = roster.NewService(a.classes, a.tracker)
	return a, nil
}

// Close releases database connections.
func (a *app) Close() {
	if a.rosterPool != nil {
		a.rosterPool.Close()
	}
	a.pool.Close()
}
