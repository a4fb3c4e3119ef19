// cmd/tools/template-seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"dealer-workers/internal/common/config"
	"dealer-workers/internal/common/database"
	"dealer-workers/internal/store"
	"dealer-workers/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, seedCmd} {
		fs.StringVar(&registryPath, "path", registry.DefaultPath, "Path to registry file")
	}

	// Add command flags
	idAdd := addCmd.String("id", "", "Template ID (e.g., subscription-expiring-3d)")
	kind := addCmd.String("kind", "", "Template kind (subscription_expiring, subscription_expired)")
	offset := addCmd.String("daysOffset", "", "Signed day offset from the expiry date (e.g., -3)")
	title := addCmd.String("title", "", "Notification title")
	body := addCmd.String("body", "", "Notification body, may use {{variables}}")
	active := addCmd.Bool("active", false, "Mark the template active")
	description := addCmd.String("description", "", "Description")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Template ID to update")
	field := updateCmd.String("field", "", "Field to update (title, body, daysOffset, active, kind, description)")
	value := updateCmd.String("value", "", "New value for the field")

	// Seed command flags
	configPath := seedCmd.String("config", "", "Path to a config file (default: configs/config.yaml lookup)")
	dryRun := seedCmd.Bool("dry-run", false, "Validate and list templates without writing")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *kind == "" || *offset == "" || *title == "" || *body == "" {
			fmt.Println("Error: id, kind, daysOffset, title, and body are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		days, err := strconv.Atoi(*offset)
		if err != nil {
			fmt.Printf("Error: invalid daysOffset: %v\n", err)
			os.Exit(1)
		}
		entry := registry.TemplateEntry{
			ID:          *idAdd,
			Kind:        *kind,
			DaysOffset:  days,
			Title:       *title,
			Body:        *body,
			Active:      *active,
			Description: *description,
		}
		if err := addTemplate(entry); err != nil {
			fmt.Printf("Error adding template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added template: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTemplate(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated template %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := loadValid()
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d templates.\n", len(reg.Templates))

	case "seed":
		seedCmd.Parse(os.Args[2:])
		if err := seed(*configPath, *dryRun); err != nil {
			fmt.Printf("Seeding failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadValid() (*registry.TemplateRegistry, error) {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func addTemplate(entry registry.TemplateEntry) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.TemplateRegistry{Version: "1.0.0"}
	}
	if err := reg.Add(entry); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	return registry.Save(reg, registryPath)
}

func updateTemplate(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Update(id, field, value); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	return registry.Save(reg, registryPath)
}

// seed upserts every registry template into PostgreSQL.
func seed(configPath string, dryRun bool) error {
	reg, err := loadValid()
	if err != nil {
		return err
	}

	if dryRun {
		for _, t := range reg.Templates {
			fmt.Printf("  %-32s %-22s %+4d active=%t\n", t.ID, t.Kind, t.DaysOffset, t.Active)
		}
		fmt.Printf("Dry run: %d templates would be seeded.\n", len(reg.Templates))
		return nil
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Ping(ctx); err != nil {
		return err
	}
	if err := pg.ApplySchema(ctx, store.Schema); err != nil {
		return err
	}

	templates := store.New(pg.GetDB()).Templates
	created, updated := 0, 0
	for _, t := range reg.Models() {
		inserted, err := templates.Upsert(ctx, t)
		if err != nil {
			return err
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}

	fmt.Printf("Seeded %d templates (%d created, %d updated).\n", created+updated, created, updated)
	return nil
}

func help() {
	fmt.Print(`
Usage: template-seeder <command> [flags]

Commands:
  add       Add a new template to the registry file
  update    Update an existing template's field
  validate  Validate the registry file
  seed      Upsert the registry templates into the database
  help      Show this help message

Examples:
  template-seeder add -id subscription-expired-3d -kind subscription_expired -daysOffset 3 -title "Sua conta venceu" -body "Olá {{nome_usuario}}" -active
  template-seeder update -id subscription-expired-3d -field active -value false
  template-seeder validate -path configs/notification-templates.json
  template-seeder seed -dry-run

Use 'template-seeder <command> -h' for more information about a command.
` + "\n")
}
