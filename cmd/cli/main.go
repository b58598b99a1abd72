package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"stridesync/internal/config"
	"stridesync/internal/database"
)

func main() {
	// Disable structured logging for CLI
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors
	})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "help" {
		printUsage()
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Open database
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch command {
	case "init":
		handleInit(db)
	case "seed-badges":
		handleSeedBadges(db)
	case "add-user":
		handleAddUser(db)
	case "list-users":
		handleListUsers(db)
	case "add-group":
		handleAddGroup(db)
	case "queue":
		handleQueue(db)
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stridesync CLI - Administration

Usage:
  cli <command> [options]

Commands:
  init                       Apply the database schema
  seed-badges                Insert the default badge catalog
  add-user <username> [goal] Create a user (daily step goal defaults to 10000)
  list-users                 List all users
  add-group <name> <user_id> Create a group owned by a user
  queue                      Show sync job queue depths
  help                       Show this help message

Examples:
  cli init
  cli seed-badges
  cli add-user alice 12000
  cli add-group "Morning Walkers" 1
  cli queue

Environment Variables Required:
  FITBIT_CLIENT_ID       - Fitbit application client ID
  FITBIT_CLIENT_SECRET   - Fitbit application client secret
  FITBIT_REDIRECT_URI    - OAuth callback URL
  INTERNAL_API_KEY       - Key for service-to-service calls
  DATABASE_PATH          - SQLite path (default: ./stridesync.db)`)
}

func handleInit(db *database.DB) {
	if err := db.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to apply schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Schema applied")
}

// defaultBadges is the starter catalog. Leaderboard badges are declared but
// never auto-awarded; that trigger is reserved.
var defaultBadges = []database.Badge{
	{Name: "First Steps", Description: "Log your first 1,000 steps", Rarity: database.RarityCommon, TriggerType: database.TriggerSteps, TriggerValue: 1000},
	{Name: "Going the Distance", Description: "Reach 100,000 lifetime steps", Rarity: database.RarityRare, TriggerType: database.TriggerSteps, TriggerValue: 100000},
	{Name: "Million Step Club", Description: "Reach 1,000,000 lifetime steps", Rarity: database.RarityLegendary, TriggerType: database.TriggerSteps, TriggerValue: 1000000},
	{Name: "Streak Starter", Description: "Log steps 3 days in a row", Rarity: database.RarityCommon, TriggerType: database.TriggerStreak, TriggerValue: 3},
	{Name: "Week Warrior", Description: "Log steps 7 days in a row", Rarity: database.RarityRare, TriggerType: database.TriggerStreak, TriggerValue: 7},
	{Name: "Unstoppable", Description: "Log steps 30 days in a row", Rarity: database.RarityLegendary, TriggerType: database.TriggerStreak, TriggerValue: 30},
	{Name: "Top of the Board", Description: "Finish first on a leaderboard", Rarity: database.RarityRare, TriggerType: database.TriggerLeaderboard, TriggerValue: 1},
}

func handleSeedBadges(db *database.DB) {
	if err := db.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to apply schema: %v\n", err)
		os.Exit(1)
	}

	existing, err := db.ListBadges()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list badges: %v\n", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		fmt.Printf("Catalog already has %d badge(s), not seeding.\n", len(existing))
		return
	}

	for i := range defaultBadges {
		badge := defaultBadges[i]
		if err := db.CreateBadge(&badge); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to create badge %q: %v\n", badge.Name, err)
			os.Exit(1)
		}
		fmt.Printf("✓ %s (%s, %s >= %d)\n", badge.Name, badge.Rarity, badge.TriggerType, badge.TriggerValue)
	}

	fmt.Printf("\nSeeded %d badges.\n", len(defaultBadges))
}

func handleAddUser(db *database.DB) {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Error: Username required")
		fmt.Fprintln(os.Stderr, "Usage: cli add-user <username> [daily_step_goal]")
		os.Exit(1)
	}

	username := os.Args[2]
	goal := int64(10000)
	if len(os.Args) >= 4 {
		parsed, err := strconv.ParseInt(os.Args[3], 10, 64)
		if err != nil || parsed <= 0 {
			fmt.Fprintf(os.Stderr, "Error: Invalid step goal: %s\n", os.Args[3])
			os.Exit(1)
		}
		goal = parsed
	}

	existing, err := db.GetUserByUsername(username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if existing != nil {
		fmt.Fprintf(os.Stderr, "Error: User %q already exists (ID %d)\n", username, existing.UserID)
		os.Exit(1)
	}

	user := &database.User{Username: username, StepGoal: goal, Active: true}
	if err := db.CreateUser(user); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created user %q (ID %d, goal %d)\n", user.Username, user.UserID, user.StepGoal)
}

func handleListUsers(db *database.DB) {
	users, err := db.ListUsers(false, 0, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list users: %v\n", err)
		os.Exit(1)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return
	}

	fmt.Printf("Found %d user(s):\n\n", len(users))
	for _, u := range users {
		status := "active"
		if !u.Active {
			status = "inactive"
		}
		fmt.Printf("ID: %d\n", u.UserID)
		fmt.Printf("  Username: %s\n", u.Username)
		fmt.Printf("  Step Goal: %d\n", u.StepGoal)
		fmt.Printf("  Status: %s\n", status)
		fmt.Println()
	}
}

func handleAddGroup(db *database.DB) {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Error: Group name and owner user ID required")
		fmt.Fprintln(os.Stderr, "Usage: cli add-group <name> <user_id>")
		os.Exit(1)
	}

	name := os.Args[2]
	userID, err := strconv.ParseInt(os.Args[3], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid user ID: %s\n", os.Args[3])
		os.Exit(1)
	}

	user, err := db.GetUser(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if user == nil {
		fmt.Fprintf(os.Stderr, "Error: User %d not found\n", userID)
		os.Exit(1)
	}

	group := &database.Group{Name: name, CreatedBy: userID}
	if err := db.CreateGroup(group); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create group: %v\n", err)
		os.Exit(1)
	}
	if err := db.JoinGroup(userID, group.GroupID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to add owner to group: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created group %q (ID %d, owner %s)\n", group.Name, group.GroupID, user.Username)
}

func handleQueue(db *database.DB) {
	total, err := db.GetSyncJobQueueLength()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ready, err := db.GetReadySyncJobQueueLength()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	processing, err := db.GetProcessingSyncJobQueueLength()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Sync job queue:")
	fmt.Printf("  Total:      %d\n", total)
	fmt.Printf("  Ready:      %d\n", ready)
	fmt.Printf("  Processing: %d\n", processing)
}
