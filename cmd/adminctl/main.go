package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/config"
	"github.com/siwarga/rwrt-backend/internal/database"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s migrate\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s reset [--force]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s create-admin <email> <name> <password> <RW|RT> [area]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Example: %s create-admin rt03@example.com \"Pak RT 03\" mypassword RT 03\n", os.Args[0])
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	_ = godotenv.Load()

	cfg := config.Load()
	db, err := database.New(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		fmt.Println("Migrations applied")
	case "reset":
		if !(len(os.Args) > 2 && os.Args[2] == "--force") && !confirmReset() {
			fmt.Println("operation cancelled")
			return
		}
		if err := db.Reset(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println("Database reset complete")
	case "create-admin":
		if err := createAdmin(ctx, db, cfg.Auth.BcryptCost, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create admin: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
	}
}

func confirmReset() bool {
	fmt.Print("warning: this will delete all data from the database. are you sure? (yes/no): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(response)) == "yes"
}

func createAdmin(ctx context.Context, db *database.Database, bcryptCost int, args []string) error {
	if len(args) != 4 && len(args) != 5 {
		usage()
	}
	role, ok := rbac.ParseRole(args[3])
	if !ok {
		return fmt.Errorf("unknown role %q", args[3])
	}
	in := accounts.NewAccount{
		Email:    args[0],
		Name:     args[1],
		Password: args[2],
		Role:     role,
	}
	if len(args) == 5 {
		in.AreaCode = args[4]
	}

	acc, err := accounts.NewRepository(db.Pool(), bcryptCost).Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("Admin created successfully: %s (%s)\n", acc.Email, acc.Session().DisplayName())
	return nil
}
