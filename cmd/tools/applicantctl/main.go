// cmd/tools/applicantctl/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"applicant-gate/internal/common/config"
	"applicant-gate/internal/common/database"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/models"
	"applicant-gate/internal/store"
	adminpanel "applicant-gate/internal/workers/admin/admin-panel"
	moderationworkflow "applicant-gate/internal/workers/moderation/moderation-workflow"

	"github.com/redis/go-redis/v9"
)

func main() {
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	offset := listCmd.Int("offset", 0, "Rows to skip")
	limit := listCmd.Int("limit", 10, "Rows to return")

	purgeCmd := flag.NewFlagSet("purge", flag.ExitOnError)
	purgeID := purgeCmd.Uint64("id", 0, "Applicant (Telegram user) id to erase")

	historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
	historyID := historyCmd.Uint64("id", 0, "Applicant (Telegram user) id")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "stats":
		statsCmd.Parse(os.Args[2:])
		env := connect()
		defer env.close()

		approved, err := env.store.CountByStatus(ctx, models.StatusApproved)
		exitOn(err, "counting approved")
		rejected, err := env.store.CountByStatus(ctx, models.StatusRejected)
		exitOn(err, "counting rejected")
		printJSON(adminpanel.Stats{Approved: approved, Rejected: rejected})

	case "list":
		listCmd.Parse(os.Args[2:])
		env := connect()
		defer env.close()

		rows, err := env.store.ListApproved(ctx, *offset, *limit)
		exitOn(err, "listing approved")
		printJSON(rows)

	case "purge":
		purgeCmd.Parse(os.Args[2:])
		if *purgeID == 0 {
			fmt.Println("Error: id is required for purge.")
			purgeCmd.Usage()
			os.Exit(1)
		}
		env := connect()
		defer env.close()

		exitOn(env.store.PurgeApplicant(ctx, *purgeID), "purging applicant")
		fmt.Printf("Purged applicant %d\n", *purgeID)
		if env.redis != nil {
			if err := clearPurged(ctx, env.redis.GetClient(), *purgeID); err != nil {
				fmt.Printf("Warning: %v; old review cards for %d stay inert until the claim expires\n", err, *purgeID)
				os.Exit(2)
			}
		}

	case "history":
		historyCmd.Parse(os.Args[2:])
		if *historyID == 0 {
			fmt.Println("Error: id is required for history.")
			historyCmd.Usage()
			os.Exit(1)
		}
		env := connect()
		defer env.close()

		records, err := env.store.ListDecisions(ctx, *historyID)
		exitOn(err, "listing decisions")
		printJSON(records)

	case "help":
		fallthrough
	default:
		help()
	}
}

type environment struct {
	store store.Store
	pg    *database.PostgresClient
	redis *database.RedisClient
}

func (e *environment) close() {
	if e.redis != nil {
		e.redis.Close()
	}
	e.pg.Close()
}

// connect opens the configured Postgres store. Redis is optional here.
func connect() *environment {
	cfg, err := config.Load()
	exitOn(err, "loading config")
	if cfg.Database.Driver != config.DriverPostgres {
		fmt.Printf("Error: applicantctl needs database.driver=%s, got %q\n", config.DriverPostgres, cfg.Database.Driver)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	exitOn(err, "opening postgres")
	exitOn(pg.Ping(ctx), "connecting to postgres")

	env := &environment{
		store: store.NewPostgres(pg.DB, config.GetDuration(cfg.Database.Postgres.QueryTimeout), logger.NewNoOpLogger()),
		pg:    pg,
	}
	if rc, err := database.NewRedis(cfg.Database.Redis); err == nil && rc.Ping(ctx) == nil {
		env.redis = rc
	}
	return env
}

// clearPurged drops the Redis state a purge leaves behind: cached stats and
// the applicant's decision claim.
func clearPurged(ctx context.Context, rdb *redis.Client, id uint64) error {
	adminpanel.NewStatsCache(rdb, time.Minute, logger.NewNoOpLogger()).InvalidateStats(ctx)
	return moderationworkflow.NewRedisClaims(rdb, 0).Release(ctx, id)
}

func exitOn(err error, what string) {
	if err != nil {
		fmt.Printf("Error %s: %v\n", what, err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	exitOn(err, "encoding output")
	fmt.Println(string(out))
}

func help() {
	fmt.Println("Usage: applicantctl <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  stats                             Approved and rejected counts")
	fmt.Println("  list -offset N -limit N           Approved applicants, newest first")
	fmt.Println("  purge -id ID                      Erase an applicant and all their data")
	fmt.Println("  history -id ID                    Decisions recorded for an applicant")
}
