package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/store"
	"github.com/subgate/subgate-bot/types"
)

// Seeds the plan catalog and the initial staff member. Safe to run more than
// once; both writes are upserts.
func main() {
	_ = config.LoadEnvFile("config.env")

	ctx := context.Background()

	pgStore, err := store.NewPostgresStore(ctx, os.Getenv("POSTGRES_DSN"))
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()

	channelID := strings.TrimSpace(os.Getenv("CHANNEL_ID"))

	plans := []types.Plan{
		{
			Name:         "Basic",
			Price:        500,
			DurationDays: 60,
			ChannelID:    channelID,
			Description:  "Basic subscription for 2 months",
		},
		{
			Name:         "Premium",
			Price:        2000,
			DurationDays: 60,
			ChannelID:    channelID,
			Description:  "Premium subscription for 2 months",
		},
		{
			Name:           "Premium Plus",
			Price:          5000,
			DurationDays:   60,
			Description:    "Premium Plus subscription with personal onboarding",
			ManualHandling: true,
		},
	}

	for _, p := range plans {
		created, err := pgStore.CreatePlan(ctx, p)
		if err != nil {
			log.Fatalf("Failed to seed plan %q: %v", p.Name, err)
		}
		log.Printf("Seeded plan %q (id %d)", created.Name, created.ID)
	}

	staffIDStr := strings.TrimSpace(os.Getenv("STAFF_EXTERNAL_ID"))
	if staffIDStr == "" {
		log.Println("STAFF_EXTERNAL_ID not set, skipping staff member seed")
		return
	}
	staffID, err := strconv.ParseInt(staffIDStr, 10, 64)
	if err != nil {
		log.Fatalf("Invalid STAFF_EXTERNAL_ID: %v", err)
	}

	member, err := pgStore.CreateStaffMember(ctx, types.StaffMember{
		Name:       getEnvDefault("STAFF_NAME", "Support Staff"),
		Email:      getEnvDefault("STAFF_EMAIL", "support@example.com"),
		ExternalID: staffID,
	})
	if err != nil {
		log.Fatalf("Failed to seed staff member: %v", err)
	}
	log.Printf("Seeded staff member %q (id %d)", member.Name, member.ID)
}

func getEnvDefault(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}
