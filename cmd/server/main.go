package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"ems/internal/app/server"
	"ems/internal/platform/config"
	"ems/internal/platform/db"
	"ems/internal/platform/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print build information and exit")
	migrateDown := flag.Bool("migrate-down", false, "roll back every migration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info().String())
		return
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if *migrateDown {
		if err := db.MigrateDown(cfg.DatabaseURL); err != nil {
			slog.Error("migrate down failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := server.Run(cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
