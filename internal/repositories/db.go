package repositories

import (
	"log"

	"github.com/trustshare/trustshare/internal/config"
	"github.com/trustshare/trustshare/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase() {
	dsn := config.Envs.DBURL
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatal("Migration failed:", err)
	}
	DB = db
	log.Println("Successfully connected to database")
}

// Migrate runs schema migrations. Split out so tests can migrate an
// in-memory database without going through ConnectDatabase.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.Grant{},
		&models.ShareLink{},
		&models.ShareNotice{},
	)
}
