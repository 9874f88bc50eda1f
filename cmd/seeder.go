package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsledger/opsledger/internal/core/roles"
	"github.com/opsledger/opsledger/internal/user"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with an initial admin account and a sample staff user.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		_, gormDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"time_entries", "invoices", "invoice_sequences", "projects", "users"} {
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		seeds := []*user.User{
			{
				Email:        "admin@opsledger.local",
				Username:     "admin",
				Name:         "Administrator",
				PasswordHash: string(hash),
				Roles:        []string{string(roles.RoleStaff), string(roles.RoleAdmin)},
				Approved:     true,
			},
			{
				Email:        "staff@opsledger.local",
				Username:     "staff",
				Name:         "Sample Staff",
				PasswordHash: string(hash),
				Roles:        roles.Default().Strings(),
				Approved:     true,
			},
		}

		for _, u := range seeds {
			var count int64
			if err := gormDB.Model(&user.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
				log.Fatalf("failed to check for %s: %v", u.Email, err)
			}
			if count > 0 {
				fmt.Println("user already exists:", u.Email)
				continue
			}
			if err := gormDB.Create(u).Error; err != nil {
				log.Fatalf("failed to seed %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
}
