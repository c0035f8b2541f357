// migrate applies or reverts the embedded schema migrations: go run ./cmd/migrate -direction up.
// With -status it prints the applied and latest versions instead.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"community-cms/backend/internal/config"
	"community-cms/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	status := flag.Bool("status", false, "Print the current and latest schema versions and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("config", err)
	}

	if *status {
		current, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			fail("version", err)
		}
		latest, err := migrate.Latest()
		if err != nil {
			fail("version", err)
		}
		fmt.Printf("schema version %d (latest %d, dirty=%t)\n", current, latest, dirty)
		return
	}

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		fail("migrate", err)
	}
	if err := migrate.Run(cfg.DatabaseURL, dir); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("schema already up to date")
			return
		}
		fail("migrate", err)
	}
}

func fail(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
	os.Exit(1)
}
