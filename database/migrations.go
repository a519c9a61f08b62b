// doctalk/database/migrations.go
package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Uploaded avatars live next to the chosen emoji icon
ALTER TABLE users ADD COLUMN avatar_path TEXT;
		`,
	},
}
