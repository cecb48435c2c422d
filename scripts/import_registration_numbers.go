// Bulk allow registration numbers from an xlsx file, for the first
// deployment or a new intake. The admin API does the same per upload.
//
// Usage: go run scripts/import_registration_numbers.go -file intake.xlsx

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/repository"
	"tp_portal_backend/internal/service"
	"tp_portal_backend/pkg/database"
	"tp_portal_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "config file")
	file := flag.String("file", "", "xlsx file, registration numbers in the first column")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	data, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	if cfg.Onboarding.RegNumberPrefix == "" {
		cfg.Onboarding.RegNumberPrefix = "EBSU/"
	}

	if err := logger.InitLogger(&cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.InitDB(&cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	codes := service.NewCodeService(
		repository.NewAccessCodeRepository(db),
		repository.NewRegistrationRepository(db),
		&cfg,
	)

	in, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *file, err)
	}
	defer in.Close()

	result, err := codes.ImportRegistrationNumbers(context.Background(), in)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Added %d, already present %d, invalid %d", result.Added, result.Duplicates, len(result.Invalid))
	for _, row := range result.Invalid {
		log.Printf("  invalid: %s", row)
	}
}
