package main

import (
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gorla/adapters/excel"
	"gorla/adapters/postgres"
	"gorla/app"
	"gorla/internal"
	"gorla/internal/config"
	"gorla/ports"
	"gorla/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := internal.NewDefaultLogger()

	var archive ports.AuditArchive
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		archive = postgres.NewAuditRepository(db)
		logger.Info("audit archive enabled")
	} else {
		logger.Warn("DATABASE_URL not set, audit archive disabled")
	}

	exporter := excel.NewTranscriptWriter(cfg.Export.Dir)
	workbench := app.NewWorkbench(archive, exporter)

	server := ui.NewServer(workbench, logger)
	if err := server.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
