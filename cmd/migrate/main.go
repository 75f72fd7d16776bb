package main

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"

	scoringconfig "dao-governance-scorer/internal/scoring/config"
	pkgconfig "dao-governance-scorer/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var configPath string

// getDSN builds a postgres URL; credentials are escaped since migrate parses the URL.
func getDSN(dbConfig pkgconfig.Database) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(dbConfig.User, dbConfig.Password),
		Host:   fmt.Sprintf("%s:%d", dbConfig.Host, dbConfig.Port),
		Path:   "/" + dbConfig.DBName,
	}
	u.RawQuery = url.Values{"sslmode": {dbConfig.SSLMode}}.Encode()
	return u.String()
}

func runMigrations(direction string) {
	cfg, err := scoringconfig.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dsn := getDSN(cfg.Database)
	migrationsPath := "file://migrations"

	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	var migrationErr error
	switch direction {
	case "up":
		migrationErr = m.Up()
	case "down":
		migrationErr = m.Steps(-1)
	}

	if migrationErr != nil && !errors.Is(migrationErr, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", migrationErr)
	}
	if direction == "up" {
		fmt.Println("Applied migrations successfully.")
	} else {
		fmt.Println("Reverted last migration successfully.")
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Printf("Migration source error on close: %v\n", srcErr)
	}
	if dbErr != nil {
		log.Printf("Migration database error on close: %v\n", dbErr)
	}
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending schema migrations for the scoring tables",
	Run: func(cmd *cobra.Command, args []string) {
		runMigrations("up")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the last database migration",
	Run: func(cmd *cobra.Command, args []string) {
		runMigrations("down")
	},
}

func main() {
	rootCmd := &cobra.Command{Use: "migrate"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-scoring.yaml", "Path to the configuration file")

	rootCmd.AddCommand(upCmd, downCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing migrate CLI: %s\n", err)
		os.Exit(1)
	}
}
