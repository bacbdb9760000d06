package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/lemonauth/internal/admin"
	"github.com/dmitrijs2005/lemonauth/internal/server"
	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/config"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/repomanager"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := server.OpenDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	app := admin.NewApp(
		m.Users(db),
		auth.NewPasswordHasher(auth.DefaultArgon2Params),
		server.Migrator{DB: db, Manager: m},
		os.Stdin,
		os.Stdout,
	)

	if err := app.Run(ctx, commandArgs(os.Args[1:])); err != nil {
		if errors.Is(err, admin.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}

}

// commandArgs drops config flags consumed by config.LoadConfig so the
// subcommand name comes first.
func commandArgs(args []string) []string {
	for i, a := range args {
		if a == "migrate" || a == "create-admin" {
			return args[i:]
		}
	}
	return nil
}
