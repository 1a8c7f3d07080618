package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/database"
	"github.com/segyhp/loan-ledger/internal/logger"
)

const usage = "usage: migrate up|down\n"

func main() {
	if len(os.Args) != 2 {
		os.Stderr.WriteString(usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	dsn, dir := cfg.Database.DSN(), cfg.Database.MigrationsDir

	switch os.Args[1] {
	case "up":
		err = database.RunMigrations(dsn, dir)
	case "down":
		err = database.RollbackMigrations(dsn, dir)
	default:
		os.Stderr.WriteString(usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migration failed", zap.String("direction", os.Args[1]), zap.Error(err))
	}

	log.Info("migration complete", zap.String("direction", os.Args[1]), zap.String("dir", dir))
}
