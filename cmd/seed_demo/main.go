// Command seed_demo creates a demo database with a member account and a shelf of Turkish classics.
// Usage: go run ./cmd/seed_demo [-db path/to/demo.db] [-password secret]
package main

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
	"github.com/mrlokans/kitaplik/internal/database/users"
	"github.com/mrlokans/kitaplik/internal/entities"
	"github.com/mrlokans/kitaplik/internal/library"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	demoUsername            = "okur"
	demoEmail               = "okur@example.com"
)

// demoBook is one shelf entry; Status is the status key sent on creation.
type demoBook struct {
	Title      string
	Author     string
	Publisher  string
	Categories []string
	Status     string
	Summary    string
}

func demoBooks() []demoBook {
	return []demoBook{
		{
			Title:      "kürk mantolu madonna",
			Author:     "Sabahattin Ali",
			Publisher:  "Yapı Kredi Yayınları",
			Categories: []string{"roman", "klasik"},
			Status:     "finished",
			Summary:    "Raif Efendi'nin defterinden Berlin'de geçen bir aşk hikayesi.",
		},
		{
			Title:      "içimizdeki şeytan",
			Author:     "Sabahattin Ali",
			Publisher:  "Yapı Kredi Yayınları",
			Categories: []string{"roman"},
			Status:     "to_buy",
		},
		{
			Title:      "saatleri ayarlama enstitüsü",
			Author:     "Ahmet Hamdi Tanpınar",
			Publisher:  "Dergah Yayınları",
			Categories: []string{"roman", "klasik"},
			Status:     "reading",
		},
		{
			Title:      "ince memed",
			Author:     "Yaşar Kemal",
			Publisher:  "Yapı Kredi Yayınları",
			Categories: []string{"roman"},
			Status:     "in_library",
		},
		{
			Title:      "tutunamayanlar",
			Author:     "Oğuz Atay",
			Publisher:  "İletişim Yayınları",
			Categories: []string{"roman", "klasik"},
			Status:     "abandoned",
		},
		{
			Title:      "memleketimden insan manzaraları",
			Author:     "Nazım Hikmet",
			Publisher:  "Yapı Kredi Yayınları",
			Categories: []string{"şiir"},
			Status:     "finished_not_in_library",
		},
	}
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	password := flag.String("password", "okur-demo-1", "password of the demo member")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(config.Database{
		Driver:   config.DriverSQLite,
		Path:     *dbPath,
		LogLevel: "silent",
	})
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	member, err := createMember(ctx, db, *password)
	if err != nil {
		log.Fatalf("Failed to create demo member: %v", err)
	}
	log.Printf("Created member %q", member.Username)

	auditService := audit.NewService(logs.NewRepository(db.DB))
	service := library.NewService(db.DB, library.Dependencies{Audit: auditService})
	actor := library.Actor{UserID: member.ID, Authority: member.AuthorityID}

	if err := seedShelf(ctx, service, actor, demoBooks()); err != nil {
		log.Fatalf("Failed to seed books: %v", err)
	}
	auditService.Wait()

	log.Println("Demo database generated successfully!")
}

func createMember(ctx context.Context, db *database.Database, password string) (*entities.User, error) {
	hash, err := auth.HashPassword(password, 0)
	if err != nil {
		return nil, err
	}
	user := &entities.User{
		Username:      demoUsername,
		Email:         demoEmail,
		PasswordHash:  hash,
		AuthorityID:   entities.AuthorityMember,
		EmailVerified: true,
	}
	if err := users.NewRepository(db.DB).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// seedShelf adds the books through the library service. Authors,
// publishers and categories are created from their labels on first use and
// referenced by id afterwards, since a repeated label is a conflict.
func seedShelf(ctx context.Context, service *library.Service, actor library.Actor, shelf []demoBook) error {
	authorIDs := map[string]uint{}
	publisherIDs := map[string]uint{}
	categoryIDs := map[string]uint{}

	ref := func(ids map[string]uint, label string) library.Ref {
		if id, ok := ids[label]; ok {
			return library.Ref{Key: id}
		}
		return library.Ref{Label: label}
	}

	for _, b := range shelf {
		publisher := ref(publisherIDs, b.Publisher)
		in := library.CreateBookInput{
			Title:     b.Title,
			Summary:   b.Summary,
			Author:    ref(authorIDs, b.Author),
			Publisher: &publisher,
			Status:    b.Status,
		}
		for _, name := range b.Categories {
			in.Categories = append(in.Categories, ref(categoryIDs, name))
		}

		book, err := service.CreateBook(ctx, actor, in, nil)
		if err != nil {
			return fmt.Errorf("failed to seed %q: %w", b.Title, err)
		}
		authorIDs[b.Author] = book.AuthorID
		if book.PublisherID != nil {
			publisherIDs[b.Publisher] = *book.PublisherID
		}
		for _, name := range b.Categories {
			if _, ok := categoryIDs[name]; ok {
				continue
			}
			if id := categoryIDByName(book.Categories, name); id != 0 {
				categoryIDs[name] = id
			}
		}
		log.Printf("Saved: %s (%s)", book.Title, b.Status)
	}
	return nil
}

// categoryIDByName finds the stored category created from label.
func categoryIDByName(list []entities.Category, label string) uint {
	key := entities.SearchKey(library.FormatBookTitle(label))
	for _, c := range list {
		if entities.SearchKey(c.Name) == key {
			return c.ID
		}
	}
	return 0
}
