package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
)

// automigrate brings a development database up to the current models.
// Production schemas are managed by the goose files in ./migrations.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	models := []any{
		&users.User{},
		&projects.Project{},
		&projects.Update{},
		&projects.Media{},
		&payments.Payment{},
		&payments.ProviderEvent{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			log.Fatalf("Failed to migrate %T: %v", m, err)
		}
	}

	fmt.Println("✓ Schema is up to date")
}
