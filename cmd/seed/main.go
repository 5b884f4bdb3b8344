// Command main seeds the CampusFind database with development data.
package main

import (
	"flag"
	"log"

	"campusfind/internal/config"
	"campusfind/internal/database"
	"campusfind/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "number of users to create")
	numPosts := flag.Int("posts", 200, "number of item reports to create")
	numContacts := flag.Int("contacts", 20, "number of contact threads to create")
	maxDays := flag.Int("days", 90, "spread created_at over the past N days")
	clean := flag.Bool("clean", true, "truncate existing data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		NumContacts: *numContacts,
		MaxDays:     *maxDays,
		ShouldClean: *clean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
