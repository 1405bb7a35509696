package main

import (
	"log"
	"os"

	"ijaplastik-pos/internal/config"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/seed"
	"ijaplastik-pos/pkg/database"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "Maintenance commands for the Ija Plastik POS database",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, relying on system env")
		}
	},
}

func open() (*config.Config, *gorm.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg, database.Connect(cfg.DBDriver, cfg.SQLitePath)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table",
	Run: func(cmd *cobra.Command, args []string) {
		_, db := open()
		if err := model.Migrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("Migration completed")
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles and the default admin account",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, db := open()
		if err := model.Migrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		if err := seed.Run(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Println("Seed completed")
	},
}

var (
	resetEmail    string
	resetPassword string
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for an account and revoke its sessions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, db := open()
		email := resetEmail
		if email == "" {
			email = cfg.AdminEmail
		}
		if len(resetPassword) < 6 {
			log.Fatal("password must be at least 6 characters")
		}
		if err := seed.ResetPassword(db, email, resetPassword); err != nil {
			log.Fatalf("reset password for %s: %v", email, err)
		}
		log.Printf("Password for %s has been reset", email)
	},
}

func init() {
	resetPasswordCmd.Flags().StringVarP(&resetEmail, "email", "e", "", "account email (defaults to ADMIN_EMAIL)")
	resetPasswordCmd.Flags().StringVarP(&resetPassword, "password", "p", "", "new password")
	_ = resetPasswordCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(migrateCmd, seedCmd, resetPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
