package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/crmgate/crmgate/config"
	"github.com/crmgate/crmgate/pkg/helpers"
)

// seed upserts a bootstrap admin account so the role-guarded endpoints are
// reachable on a fresh database. Credentials come from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD; the password must satisfy the registration rule.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123"
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name, role, is_active)
		VALUES ($1, $2, 'Administrator', 'admin', true)
		ON CONFLICT (email) DO UPDATE SET role = 'admin', is_active = true
		RETURNING id
	`, email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s\n", id, email)
}
