package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	auction "bidding-engine/internal/auctionService"
	bidding "bidding-engine/internal/biddingService"
	"bidding-engine/internal/config"
	"bidding-engine/internal/db"
	model "bidding-engine/internal/models"
	"bidding-engine/internal/repository"
	"bidding-engine/internal/server"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
)

// auctionSeeder is implemented by every store that can be prepopulated
type auctionSeeder interface {
	AddAuction(ctx context.Context, a model.Auction) error
}

// memorySeeder adapts the in-memory store to auctionSeeder
type memorySeeder struct{ repo *repository.MemoryRepo }

func (m memorySeeder) AddAuction(_ context.Context, a model.Auction) error {
	m.repo.AddAuction(a)
	return nil
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		os.Exit(1)
	}

	if err := utils.SetLevel(cfg.LogLevel); err != nil {
		utils.Warn("unknown log level, keeping info", map[string]any{"level": cfg.LogLevel})
	}
	gin.SetMode(cfg.GinMode)

	repo, seeder, cleanup := openStore(cfg)
	defer cleanup()

	if cfg.SeedDemoData {
		prepopulateAuctions(seeder, time.Now().UTC())
	}

	biddingSvc := bidding.NewBiddingService(repo, bidding.WithStoreTimeout(cfg.StoreTimeout))
	auctionSvc := auction.NewAuctionService(repo, auction.WithStoreTimeout(cfg.StoreTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.SweepInterval > 0 {
		go auctionSvc.RunSweeper(ctx, cfg.SweepInterval)
	}

	router := server.SetupRouter(biddingSvc, auctionSvc)

	utils.Info("starting auction server", map[string]any{
		"address":        cfg.ServerAddress,
		"store":          cfg.StoreDriver,
		"sweep_interval": cfg.SweepInterval.String(),
	})
	if err := router.Run(cfg.ServerAddress); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

// openStore builds the configured AuctionDB and a function releasing it
func openStore(cfg config.Config) (repository.AuctionDB, auctionSeeder, func()) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		runDBMigration(cfg.MigrationURL, cfg.PostgresConn)

		dbPool, err := db.InitDb(cfg)
		if err != nil {
			utils.Fatal("error initializing database", map[string]any{"error": err.Error()})
		}
		repo := repository.NewPostgresRepo(dbPool)
		return repo, repo, dbPool.Close

	case config.DriverSQLite:
		repo, err := repository.NewSQLiteRepo(cfg.SQLitePath)
		if err != nil {
			utils.Fatal("error opening sqlite store", map[string]any{"path": cfg.SQLitePath, "error": err.Error()})
		}
		return repo, repo, func() { _ = repo.Close() }

	default:
		repo := repository.NewMemoryRepo()
		return repo, memorySeeder{repo: repo}, func() {}
	}
}

func runDBMigration(migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		utils.Fatal("cannot create a new migrate instance", map[string]any{"error": err.Error()})
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		utils.Fatal("failed to run migrate up", map[string]any{"error": err.Error()})
	}
	utils.Info("db migrated successfully", nil)
}

// prepopulateAuctions adds sample auctions to the store
func prepopulateAuctions(seeder auctionSeeder, now time.Time) {
	day := 24 * time.Hour
	auctions := []model.Auction{
		{
			ID: "auction1", PropertyID: "property1", Status: model.StatusActive,
			BasePrice:    decimal.RequireFromString("100000"),
			ReservePrice: decimal.NewNullDecimal(decimal.RequireFromString("150000")),
			BidIncrement: decimal.RequireFromString("5000"),
			StartDate:    now.Add(-day), EndDate: now.Add(7 * day),
		},
		{
			ID: "auction2", PropertyID: "property2", Status: model.StatusActive,
			BasePrice:    decimal.RequireFromString("2500000"),
			BidIncrement: decimal.RequireFromString("25000"),
			StartDate:    now.Add(-2 * day), EndDate: now.Add(3 * day),
		},
		{
			ID: "auction3", PropertyID: "property3", Status: model.StatusDraft,
			BasePrice:    decimal.RequireFromString("750000.50"),
			BidIncrement: decimal.RequireFromString("10000"),
			StartDate:    now.Add(day), EndDate: now.Add(10 * day),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, a := range auctions {
		if err := seeder.AddAuction(ctx, a); err != nil {
			utils.Warn("failed to seed auction", map[string]any{"auction_id": a.ID, "error": err.Error()})
		}
	}
	utils.Info("demo auctions seeded", map[string]any{"count": len(auctions)})
}
