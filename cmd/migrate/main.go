// Schema commands for the payments ledger, wrapped around goose so the
// migration set and connection settings stay inside this repo.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/taquillave/p2c-gateway/internal/config"
)

func main() {
	dir := flag.String("dir", "migrations", "directory with migration files")
	dsn := flag.String("dsn", "", "database url, overrides P2C_DATABASE__URL")
	flag.Usage = printCommands
	flag.Parse()

	if flag.NArg() == 0 {
		printCommands()
		os.Exit(1)
	}
	command := flag.Arg(0)

	url := *dsn
	if url == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		url = cfg.Database.URL
	}
	if url == "" {
		log.Fatal("no database configured: set P2C_DATABASE__URL or pass -dsn")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	if err := goose.Run(command, db, *dir, flag.Args()[1:]...); err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
}

func printCommands() {
	fmt.Println("Usage: migrate [-dsn URL] [-dir DIR] COMMAND")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                    Apply all pending migrations")
	fmt.Println("  up-to VERSION         Apply migrations through VERSION")
	fmt.Println("  down                  Roll back the last migration")
	fmt.Println("  down-to VERSION       Roll back to VERSION")
	fmt.Println("  redo                  Re-apply the last migration")
	fmt.Println("  status                Show applied and pending migrations")
	fmt.Println("  version               Show the current schema version")
	fmt.Println("  create NAME sql       Start a new migration file")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate up")
	fmt.Println("  migrate status")
	fmt.Println("  migrate create add_payments_index sql")
}
