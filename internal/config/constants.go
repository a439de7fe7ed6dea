package config

const (
	// DefaultDatabasePath is the default path for the sqlite development database
	DefaultDatabasePath = "./kitaplik.db"

	// DefaultTasksDatabasePath is the dedicated sqlite database for the task queue
	DefaultTasksDatabasePath = "./kitaplik-tasks.db"

	// DefaultCoversDir is where the local storage driver keeps cover images
	DefaultCoversDir = "./covers"

	// DefaultMailAPIURL is the transactional mail endpoint (Resend-compatible)
	DefaultMailAPIURL = "https://api.resend.com/emails"
)
