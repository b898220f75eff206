package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/halcyonlabs/gatehouse/admin/internal/admin"
	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/curve"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
	"github.com/halcyonlabs/gatehouse/engine/pkg/protocol"
	"github.com/halcyonlabs/gatehouse/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// PostgreSQL configuration
	databaseURLFlag := flag.String("database-url", "", "PostgreSQL connection string (or set DATABASE_URL env var)")

	// Commands
	pgMigrateFlag := flag.Bool("pg-migrate", false, "Run PostgreSQL database migrations using goose")
	pgMigrateDownFlag := flag.Bool("pg-migrate-down", false, "Roll back the most recent PostgreSQL migration")
	pgMigrateStatusFlag := flag.Bool("pg-migrate-status", false, "Show PostgreSQL database migration status")
	resetDBFlag := flag.Bool("reset-db", false, "Drop all database tables")
	dryRunFlag := flag.Bool("dry-run", false, "Dry run mode - show what would be done without actually executing")
	yesFlag := flag.Bool("yes", false, "Skip confirmation prompt (use with caution)")

	// Protocol bootstrap
	initProtocolFlag := flag.Bool("init-protocol", false, "Initialize the protocol config (no-op if already initialized)")
	adminAddrFlag := flag.String("admin", "", "Admin account address for --init-protocol")
	treasuryAddrFlag := flag.String("treasury", "", "Treasury account address for --init-protocol")
	poolAddrFlag := flag.String("pool", "", "Pool account address for --init-protocol")
	protocolFeeFlag := flag.Uint64("protocol-fee-pct", 5, "Protocol fee percentage")
	subjectFeeFlag := flag.Uint64("subject-fee-pct", 5, "Subject fee percentage")
	referralFeeFlag := flag.Uint64("referral-fee-pct", 2, "Referral fee percentage")
	weightAFlag := flag.Uint64("curve-weight-a", 80, "Curve weight A")
	weightBFlag := flag.Uint64("curve-weight-b", 50, "Curve weight B")
	weightCFlag := flag.Uint64("curve-weight-c", 2, "Curve exponent C")
	initialPriceFlag := flag.Uint64("initial-price", 1, "Unit price at zero supply")
	sellDiscountFlag := flag.Uint64("sell-discount-pct", 10, "Sell side discount percentage")

	flag.Parse()

	log := logger.New(*verboseFlag)

	// Override flags with environment variables if set
	if envDatabaseURL := os.Getenv("DATABASE_URL"); envDatabaseURL != "" && *databaseURLFlag == "" {
		*databaseURLFlag = envDatabaseURL
	}

	if *databaseURLFlag == "" {
		return fmt.Errorf("--database-url is required (or set DATABASE_URL env var)")
	}

	ctx := context.Background()

	if *pgMigrateFlag {
		return pgdb.Migrate(ctx, log, *databaseURLFlag)
	}

	if *pgMigrateDownFlag {
		return pgdb.MigrateDown(ctx, log, *databaseURLFlag)
	}

	if *pgMigrateStatusFlag {
		return pgdb.MigrationStatus(ctx, log, *databaseURLFlag)
	}

	if *resetDBFlag {
		return admin.ResetDB(ctx, log, *databaseURLFlag, *dryRunFlag, *yesFlag)
	}

	if *initProtocolFlag {
		adminAddr, err := addr.Parse(*adminAddrFlag)
		if err != nil {
			return fmt.Errorf("--admin: %w", err)
		}
		treasuryAddr, err := addr.Parse(*treasuryAddrFlag)
		if err != nil {
			return fmt.Errorf("--treasury: %w", err)
		}
		poolAddr, err := addr.Parse(*poolAddrFlag)
		if err != nil {
			return fmt.Errorf("--pool: %w", err)
		}

		return admin.InitProtocol(ctx, log, *databaseURLFlag, protocol.Config{
			Admin:    adminAddr,
			Treasury: treasuryAddr,
			Pool:     poolAddr,
			Fees: fees.Percents{
				Protocol: *protocolFeeFlag,
				Subject:  *subjectFeeFlag,
				Referral: *referralFeeFlag,
			},
			Curve: curve.Params{
				WeightA:         *weightAFlag,
				WeightB:         *weightBFlag,
				WeightC:         *weightCFlag,
				InitialPrice:    *initialPriceFlag,
				SellDiscountPct: *sellDiscountFlag,
			},
		})
	}

	flag.Usage()
	return fmt.Errorf("no command specified")
}
