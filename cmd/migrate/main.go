// migrate applies the embedded schema migrations: go run ./cmd/migrate -direction up|down|reset.
package main

import (
	"flag"
	"fmt"
	"os"

	"rental-backoffice/backend/internal/config"
	"rental-backoffice/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", migrate.Up, "up applies pending migrations, down rolls back one, reset rolls back all")
	flag.Parse()

	dsn, err := config.LoadDatabaseURL()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "create a .env or export DATABASE_URL")
		os.Exit(1)
	}

	res, err := migrate.Run(dsn, *direction)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	switch {
	case res.Dirty:
		fmt.Printf("schema version %d is dirty; fix it manually before migrating again\n", res.Version)
		os.Exit(1)
	case res.Changed:
		fmt.Printf("schema now at version %d\n", res.Version)
	default:
		fmt.Printf("schema already at version %d, nothing to do\n", res.Version)
	}
}
