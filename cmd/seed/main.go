// Command main runs the database seeder for Inkfeed.
package main

import (
	"context"
	"flag"
	"log"

	"inkfeed/internal/config"
	"inkfeed/internal/database"
	"inkfeed/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Maximum accounts each user follows")
	interactions := flag.Int("interactions", defaults.InteractionsPerPost, "Maximum likes per post")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:            *numUsers,
		NumPosts:            *numPosts,
		FollowsPerUser:      *follows,
		InteractionsPerPost: *interactions,
		MaxDays:             defaults.MaxDays,
		Seed:                *seedValue,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d follows, %d posts, %d likes, %d saves",
		sum.Users, sum.Follows, sum.Posts, sum.Likes, sum.Saves)
}
