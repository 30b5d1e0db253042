// Package main - idempotent database seed: the three catalog assets and
// their system wallets (Treasury, Bonus Pool, Revenue). Safe to run twice;
// an already-seeded database is left untouched.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/config"
	"github.com/coinvault/coinvault/internal/domain/entities"
	"github.com/coinvault/coinvault/internal/infrastructure/persistence/postgres"
)

// treasuryOpeningBalance mirrors the opening supply given to each treasury.
// System wallets never reject a debit, so this is bookkeeping, not a cap.
const treasuryOpeningBalance = "999999999.00"

type seedAsset struct {
	code        string
	name        string
	description string
}

var seedAssets = []seedAsset{
	{"GOLD_COIN", "Gold Coins", "Primary in-game currency for purchasing items and services"},
	{"DIAMOND", "Diamonds", "Premium currency for exclusive items and features"},
	{"LOYALTY_POINT", "Loyalty Points", "Reward points earned through gameplay and activities"},
}

func main() {
	envOnly := flag.Bool("env-only", false, "Load config only from environment variables")
	flag.Parse()

	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if *envOnly {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load("./configs", "config")
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Database.Host
	pgCfg.Port = cfg.Database.Port
	pgCfg.User = cfg.Database.User
	pgCfg.Password = cfg.Database.Password
	pgCfg.Database = cfg.Database.Database
	pgCfg.SSLMode = cfg.Database.SSLMode

	pool, err := postgres.NewConnectionPool(ctx, pgCfg)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	assets := postgres.NewAssetTypeRepository(pool)
	wallets := postgres.NewWalletRepository(pool)
	uow := postgres.NewUnitOfWork(pool)

	existing, err := assets.List(ctx)
	if err != nil {
		log.Fatalf("failed to check existing assets: %v", err)
	}
	if len(existing) > 0 {
		fmt.Println("Database already seeded, skipping")
		os.Exit(0)
	}

	var treasuryIDs []int64

	err = uow.Execute(ctx, func(txCtx context.Context) error {
		for _, s := range seedAssets {
			asset := &entities.AssetType{
				Code:        s.code,
				Name:        s.name,
				Description: s.description,
				IsActive:    true,
			}
			if err := assets.Insert(txCtx, asset); err != nil {
				return fmt.Errorf("insert asset %s: %w", s.code, err)
			}
			fmt.Printf("Created asset %s (%s)\n", asset.Name, asset.Code)

			ids, err := seedSystemWallets(txCtx, wallets, asset)
			if err != nil {
				return err
			}
			treasuryIDs = append(treasuryIDs, ids...)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	// Opening supply bypasses the engine on purpose: there is no
	// counterparty for the genesis balance.
	for _, id := range treasuryIDs {
		if _, err := pool.Exec(ctx,
			`UPDATE wallets SET balance = $2 WHERE id = $1`,
			id, treasuryOpeningBalance,
		); err != nil {
			log.Fatalf("failed to fund treasury wallet %d: %v", id, err)
		}
	}

	fmt.Println("Seed complete")
}

// seedSystemWallets creates the Treasury, Bonus Pool and Revenue wallets for
// one asset, returning the treasury wallet id for funding.
func seedSystemWallets(ctx context.Context, wallets ports.WalletRepository, asset *entities.AssetType) ([]int64, error) {
	var treasuryIDs []int64
	for _, userID := range []string{
		entities.TreasuryUserID(asset.Code),
		entities.BonusPoolUserID(asset.Code),
		entities.RevenueUserID(asset.Code),
	} {
		w, _, err := wallets.Acquire(ctx, userID, asset.ID, true)
		if err != nil {
			return nil, fmt.Errorf("create system wallet %s: %w", userID, err)
		}
		if userID == entities.TreasuryUserID(asset.Code) {
			treasuryIDs = append(treasuryIDs, w.ID())
		}
		fmt.Printf("  Created system wallet %s\n", userID)
	}
	return treasuryIDs, nil
}
