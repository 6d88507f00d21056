// Demo admin server: connects to Postgres, migrates the library tables
// plus two host models and serves the admin UI on /admin.
package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/wisertogether/go-base-model/admin"
	"github.com/wisertogether/go-base-model/internal/config"
	"github.com/wisertogether/go-base-model/internal/database"
	"github.com/wisertogether/go-base-model/internal/models"
)

func main() {
	cfg := config.Load()
	database.Init(cfg.DBDSN, cfg.AdminUsername, cfg.AdminPassword)

	adm := admin.New(database.DB, admin.Config{
		SessionSecret: cfg.SessionSecret,
	})
	if err := adm.Register(&models.Organization{}, admin.Options{Title: "Organizations"}); err != nil {
		log.Fatalf("failed to register organization model: %v", err)
	}
	if err := adm.Register(&models.Contact{}, admin.Options{
		Title:  "Contacts",
		Fields: []string{"Name", "Title", "Email", "Phone", "OrganizationID"},
	}); err != nil {
		log.Fatalf("failed to register contact model: %v", err)
	}

	r := gin.Default()
	adm.Mount(r)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("starting admin server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
