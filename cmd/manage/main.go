// Command manage runs maintenance tasks against the catalog database.
//
//	manage migrate
//	manage createadmin -username ann -password secret [-role admin]
//	manage loaddata -file fixtures.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/logger"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/service"
	"gorm.io/gorm"
)

var errUsage = errors.New("usage: manage <migrate|createadmin|loaddata> [flags]")

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, false).Named("manage")

	if err := run(context.Background(), cfg, log, os.Args[1:]); err != nil {
		log.Error("command failed", "error", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, errUsage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log hclog.Logger, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "migrate", "createadmin", "loaddata":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	db, err := repository.InitDB(cfg, log)
	if err != nil {
		return err
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := repository.Migrate(ctx, db, log); err != nil {
		return err
	}

	switch cmd {
	case "createadmin":
		return createAdmin(ctx, db, log, args)
	case "loaddata":
		return loadData(ctx, db, log, args)
	}
	log.Info("migrations applied")
	return nil
}

func createAdmin(ctx context.Context, db *gorm.DB, log hclog.Logger, args []string) error {
	fs := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password")
	role := fs.String("role", model.RoleAdmin, "admin or staff")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("%w: -username and -password are required", errUsage)
	}
	if *role != model.RoleAdmin && *role != model.RoleStaff {
		return fmt.Errorf("%w: unknown role %q", errUsage, *role)
	}

	user, err := repository.NewUserRepository(db).Create(ctx, *username, *password, *role)
	if err != nil {
		return err
	}
	log.Info("user created", "id", user.ID, "username", user.Username, "role", user.Role)
	return nil
}

func loadData(ctx context.Context, db *gorm.DB, log hclog.Logger, args []string) error {
	fs := flag.NewFlagSet("loaddata", flag.ContinueOnError)
	file := fs.String("file", "", "YAML fixture file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *file == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}

	report, err := service.NewFixtureLoader(db, log).LoadFile(ctx, *file)
	if err != nil {
		return err
	}
	fmt.Printf("Installed %d object(s), updated %d object(s) from %s\n", report.Created, report.Updated, *file)
	return nil
}
