package database

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	basemodel "github.com/wisertogether/go-base-model"
	"github.com/wisertogether/go-base-model/admin"
	"github.com/wisertogether/go-base-model/internal/models"
)

var DB *gorm.DB

func Init(dsn, adminUsername, adminPassword string) {
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Printf("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			log.Println("connected to DB successfully")
			break
		}

		log.Printf("failed to connect to DB: %v", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("failed to connect to db after %d attempts: %v", maxAttempts, err)
	}

	if err := DB.Use(basemodel.Plugin{}); err != nil {
		log.Fatalf("failed to install basemodel plugin: %v", err)
	}

	basemodel.RegisterModel(&models.Organization{}, &models.Contact{}, &admin.AuditLog{})
	if err := basemodel.AutoMigrate(DB); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	seedDefaultAdmin(adminUsername, adminPassword)
}

// the admin account comes from config only, never from a signup form
func seedDefaultAdmin(username, password string) {
	var count int64
	if err := DB.Model(&basemodel.User{}).
		Where("role = ?", basemodel.RoleAdmin).
		Count(&count).Error; err != nil {
		log.Printf("failed to check admin user: %v", err)
		return
	}
	if count > 0 {
		return
	}

	admin := basemodel.User{
		Username: username,
		Role:     basemodel.RoleAdmin,
	}
	if err := admin.SetPassword(password); err != nil {
		log.Printf("failed to hash default admin password: %v", err)
		return
	}

	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("failed to create default admin: %v", err)
		return
	}

	log.Printf("created default admin user: %s", username)
}
