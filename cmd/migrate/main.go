package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ldraney/pal-e-billing/pkg/config"
	"github.com/ldraney/pal-e-billing/pkg/db"
	"github.com/ldraney/pal-e-billing/pkg/logger"
	"github.com/ldraney/pal-e-billing/pkg/migrate"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|columns")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"driver": cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up":
		if err := migrate.Evolve(ctx, dbClient.DB(), logg); err != nil {
			fmt.Fprintf(os.Stderr, "schema evolution failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("schema up to date")

	case "columns":
		cols, err := migrate.ExistingColumns(ctx, dbClient.DB())
		if err != nil {
			fmt.Fprintf(os.Stderr, "listing columns failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(strings.Join(cols, "\n"))

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
