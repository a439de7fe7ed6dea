// Package database opens the library database and owns its schema.
//
// # Architecture
//
// Data access is split into one sub-package per table group:
//
//	database/
//	├── database.go      # Connection setup, migrations, lookup seeding
//	├── errors.go        # Driver-independent error checks
//	├── authors/         # Authors and their book counts
//	├── publishers/      # Publishers and their book counts
//	├── categories/      # Categories and book links
//	├── books/           # Books, filters and cover retention queries
//	├── readings/        # Per-user readings and reading statistics
//	├── users/           # Accounts
//	├── logs/            # Audit trail
//	└── dbtest/          # In-memory sqlite for tests
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB)
//	list, total, err := booksRepo.List(ctx, books.ListFilter{StatusID: entities.StatusReading})
//
// Repositories are bound to a *gorm.DB. Services that need several of them
// in one transaction create them from the transaction handle, or call WithTx
// where the repository offers it.
//
// Both sqlite and postgres are supported. Status, event type and authority
// rows are seeded on every start and never change at runtime.
package database
