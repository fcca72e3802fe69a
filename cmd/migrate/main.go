// Command migrate applies the users schema and exits. The API applies the
// same statements at start-up; this exists for deploy pipelines that run
// migrations as a separate step.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/leafit/leafit-backend/config"
	"github.com/leafit/leafit-backend/internal/storage/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the statements without executing them")
	timeout := flag.Duration("timeout", 30*time.Second, "overall migration timeout")
	flag.Parse()

	if *dryRun {
		for _, stmt := range postgres.Schema {
			fmt.Printf("%s;\n\n", stmt)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.NewConnection(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("applied %d statements", len(postgres.Schema))
}
