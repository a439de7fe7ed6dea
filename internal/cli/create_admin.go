// Package cli implements the administrative subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mrlokans/kitaplik/internal/audit"
	"github.com/mrlokans/kitaplik/internal/auth"
	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/database/logs"
)

// CreateAdminCommand creates an administrator account directly in the database.
type CreateAdminCommand struct {
	Username string
	Email    string
	Password string

	cfg *config.Config
}

func NewCreateAdminCommand(cfg *config.Config) *CreateAdminCommand {
	return &CreateAdminCommand{cfg: cfg}
}

// ParseFlags parses command line flags
func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username of the administrator (required)")
	fs.StringVar(&cmd.Email, "email", "", "Verified email address of the administrator")
	fs.StringVar(&cmd.Password, "password", "", "Password, at least 8 characters (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an administrator account. The database settings come from the environment.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-admin -username yonetici -email admin@example.com -password 'gizli-parola'\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" || cmd.Password == "" {
		fs.Usage()
		return fmt.Errorf("-username and -password are required")
	}
	return nil
}

// Run executes the command
func (cmd *CreateAdminCommand) Run() error {
	db, err := database.NewDatabase(cmd.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	auditService := audit.NewService(logs.NewRepository(db.DB))
	service := auth.NewService(db.DB, cmd.cfg.Auth, auth.Dependencies{
		Audit:  auditService,
		Mailer: auth.NopMailer{},
	})

	user, err := service.CreateAdmin(context.Background(), cmd.Username, cmd.Email, cmd.Password)
	if err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}
	auditService.Wait()

	log.Printf("Created administrator %q (id %d)", user.Username, user.ID)
	return nil
}
