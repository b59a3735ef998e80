package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/blankhall98/Metaleria-API/pkg/config"
	"github.com/blankhall98/Metaleria-API/pkg/db"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/logger"
	"github.com/blankhall98/Metaleria-API/pkg/migrate"
)

const serviceName = "migrate"

func main() {
	command := flag.String("cmd", "up", "up|status|version|validate")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if *command == "validate" {
		if err := migrate.Validate(migrate.Files()); err != nil {
			logg.Error(ctx, "migration validation failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "migration validation passed")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *command, "driver": cfg.DB.Driver})

	if err := run(ctx, cfg, logg, *command, *version); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, command, version string) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	// goose files target Postgres; sqlite schemas come from the models.
	if cfg.DB.IsSQLite() {
		if command != "up" {
			return fmt.Errorf("-cmd=%s is not supported for the sqlite driver", command)
		}
		if err := models.AutoMigrate(client.DB().WithContext(ctx)); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema migrated from models")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	switch command {
	case "up":
		applied, err := migrate.Up(ctx, sqlDB)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied_versions", applied), "migrations applied")
	case "status":
		statuses, err := migrate.Status(ctx, sqlDB)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			fmt.Printf("%-14d %-8s %s\n", st.Source.Version, st.State, st.Source.Path)
		}
	case "version":
		target, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -version %q: %w", version, err)
		}
		if err := migrate.ToVersion(ctx, sqlDB, target); err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", target), "schema at requested version")
	default:
		return fmt.Errorf("unknown -cmd %q", command)
	}
	return nil
}
