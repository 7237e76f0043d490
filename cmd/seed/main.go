package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/blackmichael/collabboard/internal/boardclient"
)

// samples are posted in order, so the last one lists first.
var samples = []boardclient.NewPost{
	{Interest: "Build a community garden on the empty lot behind the library", SignalUsername: "gardener1", Alias: "Robin"},
	{Interest: "Weekly farmers market stall for local growers", Location: "Bristol", SignalUsername: "trader"},
	{Interest: "Start a seed library and swap day", Location: "Leeds", SignalUsername: "grower", Alias: "Sam"},
	{Interest: "Bike repair cafe, bring your own bike", Location: "Manchester", SignalUsername: "fixer"},
	{Interest: "Tenants union for our block", SignalUsername: "neighbour"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		baseURL       string
		password      string
		adminPassword string
		reset         bool
		keyword       string
		deleteID      int64
	)

	flag.StringVar(&baseURL, "url", envOrDefault("BOARD_URL", "http://localhost:3000"), "Board server URL")
	flag.StringVar(&password, "password", "", "Password to protect the seeded posts with (optional)")
	flag.StringVar(&adminPassword, "admin-password", envOrDefault("BOARD_ADMIN_PASSWORD", ""), "Admin password, required with --clear")
	flag.BoolVar(&reset, "clear", false, "Delete every listed post with the admin password before seeding")
	flag.StringVar(&keyword, "search", "", "Keyword query to run after seeding")
	flag.Int64Var(&deleteID, "delete", 0, "Delete this post with --password instead of seeding")
	flag.Parse()

	ctx := context.Background()
	client := boardclient.NewClient(baseURL)

	if deleteID != 0 {
		if password == "" {
			return fmt.Errorf("--password is required with --delete")
		}
		if err := client.DeletePost(ctx, deleteID, password); err != nil {
			return err
		}
		fmt.Printf("Deleted post %d\n", deleteID)
		return nil
	}

	if reset {
		if adminPassword == "" {
			return fmt.Errorf("--admin-password is required with --clear (or set BOARD_ADMIN_PASSWORD)")
		}
		existing, err := client.Search(ctx, "", "")
		if err != nil {
			return err
		}
		for _, p := range existing {
			if err := client.AdminDeletePost(ctx, p.ID, adminPassword); err != nil {
				return err
			}
		}
		fmt.Printf("Removed %d existing posts\n", len(existing))
	}

	for _, sample := range samples {
		sample.Password = password
		post, err := client.CreatePost(ctx, sample)
		if err != nil {
			return err
		}
		fmt.Printf("Created post %d: %s (%s)\n", post.ID, post.Interest, post.Location)
	}

	if keyword != "" {
		posts, err := client.Search(ctx, keyword, "")
		if err != nil {
			return err
		}
		fmt.Printf("Search %q matched %d posts\n", keyword, len(posts))
		for _, p := range posts {
			fmt.Printf("  %d: %s\n", p.ID, p.Interest)
		}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
