package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"event-in/internal/config"
	"event-in/internal/database"
	"event-in/internal/database/migrations"
	"event-in/internal/logger"
	"event-in/internal/models"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	seed := flag.Bool("seed", false, "insert sample events after migrating")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(logger.Options{Level: logger.ParseLevel(cfg.Log.Level)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, cfg.Database.Driver, log)

	if *down {
		log.Info("MIGRATE", "Rolling back migrations...")
		if err := runner.MigrateDown(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		log.Info("MIGRATE", "✅ Done.")
		return
	}

	log.Info("MIGRATE", "Applying migrations...")
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}

	if *seed {
		log.Info("MIGRATE", "Seeding sample data...")
		if err := seedData(ctx, bunDB); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to seed events: %v", err))
		}
		log.LogDatabase("SEED", "events", "2 sample events inserted")
	}
	log.Info("MIGRATE", "✅ Done.")
}

func seedData(ctx context.Context, db *bun.DB) error {
	link := "https://meet.google.com/abc-defg-hij"
	now := time.Now().UTC()
	tomorrow := now.AddDate(0, 0, 1).Format(models.DateLayout)

	events := []models.Event{
		{
			Name:        "Daily Standup",
			Description: "Sinkronisasi harian tim",
			Date:        now.Format(models.DateLayout),
			StartTime:   "09:00",
			EndTime:     "09:15",
			MeetLink:    &link,
			Recurring:   true,
			CreatedAt:   now,
		},
		{
			Name:        "Sprint Review",
			Description: "Demo hasil sprint ke stakeholder",
			Date:        tomorrow,
			StartTime:   "14:00",
			EndTime:     "15:00",
			CreatedAt:   now.Add(time.Second),
		},
	}
	_, err := db.NewInsert().Model(&events).Exec(ctx)
	return err
}
