package commands

import (
	"log/slog"
	"time"

	configlibsql "redditharvest/lib/configutil/libsql"
	"redditharvest/lib/scrapers/redditapi"
	"redditharvest/lib/scrapers/redditweb"
	"redditharvest/lib/serviceutil"
	"redditharvest/services/harvest"
	harvestdb "redditharvest/services/harvest/db"

	"github.com/spf13/cobra"
)

var scrapeFlags struct {
	db        *string
	subreddit *string
	source    *string
	limit     *int
	maxPages  *int
	comments  *int
	delay     *float64
}

func init() {
	scrapeFlags.db = scrapeCmd.Flags().String("db", "harvest.db", "The database to write scrape results to.")
	scrapeFlags.subreddit = scrapeCmd.Flags().String("subreddit", "tech", "The subreddit to scrape.")
	scrapeFlags.source = scrapeCmd.Flags().String("source", "web", "Which source to pull posts from: web, api or both.")
	scrapeFlags.limit = scrapeCmd.Flags().Int("limit", 200, "Total number of posts to collect.")
	scrapeFlags.maxPages = scrapeCmd.Flags().Int("max-pages", 5, "Listing page budget.")
	scrapeFlags.comments = scrapeCmd.Flags().Int("max-posts-for-comments", 50, "How many posts get their comment trees fetched.")
	scrapeFlags.delay = scrapeCmd.Flags().Float64("delay", 2.0, "Politeness delay between page fetches, in seconds.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--subreddit <name>] [--db <path/to/output.db>]",
	Short: "Runs one ingestion cycle and writes posts + comments to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, err := configlibsql.Struct{File: *scrapeFlags.db}.OpenDB(harvestdb.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		web, err := redditweb.NewClient(redditweb.ClientOptions{
			RequestDelay: time.Duration(*scrapeFlags.delay * float64(time.Second)),
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize web client", err)
		}
		api, err := redditapi.NewClient(redditapi.ClientOptions{})
		if err != nil {
			serviceutil.Fatal("failed to initialize api client", err)
		}

		harvester := harvest.NewHarvester(
			harvestdb.NewStore(database),
			web,
			api,
			harvest.Options{
				Subreddit:           *scrapeFlags.subreddit,
				Source:              harvest.Source(*scrapeFlags.source),
				Limit:               *scrapeFlags.limit,
				MaxPages:            *scrapeFlags.maxPages,
				MaxPostsForComments: *scrapeFlags.comments,
			},
		)

		t1 := time.Now()
		stats, err := harvester.RunCycle(ctx)
		if err != nil {
			serviceutil.Fatal("cycle failed", err)
		}
		slog.Info("scrape finished",
			"posts", stats.Upserted,
			"comments", stats.Comments,
			"seconds", time.Since(t1).Seconds(),
		)
	},
}
