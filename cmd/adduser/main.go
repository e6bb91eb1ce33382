// cmd/adduser/main.go
// Creates or updates a staff user in the database.
//
// Usage:
//
//	go run ./cmd/adduser -username maria -password testing -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/padraicbc/inscricoes/config"
	"github.com/padraicbc/inscricoes/db"
	"github.com/padraicbc/inscricoes/handlers"
	"github.com/padraicbc/inscricoes/models"
	"github.com/padraicbc/inscricoes/store"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	role := flag.String("role", "user", "role to grant; the admin role can record kit pickups")
	flag.Parse()

	if strings.TrimSpace(*role) == "" {
		log.Fatal("-role must not be empty")
	}

	hash, err := handlers.HashPassword(*username, *password)
	if err != nil {
		log.Fatal("adduser: ", err)
	}

	ctx := context.Background()
	cfg := config.LoadDatabase()
	bdb, err := db.Setup(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer bdb.Close()

	if err := db.CreateTables(ctx, bdb); err != nil {
		log.Fatal(err)
	}

	user := &models.User{
		Username: strings.TrimSpace(*username),
		Password: hash,
		Role:     strings.TrimSpace(*role),
	}
	if err := store.New(bdb).SaveUser(ctx, user); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("user %q saved with role %q\n", user.Username, user.Role)
}
