package main

import (
	"time"

	"redditharvest/lib/configutil"
	configlibsql "redditharvest/lib/configutil/libsql"
	"redditharvest/lib/scrapers/redditapi"
	"redditharvest/lib/scrapers/redditweb"
	"redditharvest/lib/serviceutil"
	"redditharvest/lib/telemetry"
	"redditharvest/services/harvest"
	harvestdb "redditharvest/services/harvest/db"
)

type ApiConfig struct {
	Credentials redditapi.Credentials `json:"credentials"`
	Sort        string                `json:"sort"`
	Batch       int                   `json:"batch"`
}

type Config struct {
	Database configlibsql.Struct `json:"database"`

	Subreddit string `json:"subreddit"`
	// web, api or both
	Source string `json:"source"`
	Limit  int    `json:"limit"`
	// page budget for the listing crawler
	MaxPages int `json:"max_pages"`
	// 0 means run once then exit
	PollSeconds int `json:"poll_seconds"`
	// politeness delay between listing page fetches
	RequestDelaySeconds float64 `json:"request_delay_seconds"`
	// delay after each comment tree fetch
	CommentsSleepSeconds float64 `json:"comments_sleep_seconds"`
	// how many of each cycle's posts get their comments fetched
	MaxPostsForComments int `json:"max_posts_for_comments"`

	Api ApiConfig `json:"api"`

	Debug bool `json:"debug"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	telemetry.InitSlog(config.Debug)
	err = telemetry.SetupFromEnv(ctx, "harvestd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(ctx)
	telemetry.InstrumentPerfStats(ctx)

	database, err := config.Database.OpenDB(harvestdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	defer database.Close()

	web, err := redditweb.NewClient(redditweb.ClientOptions{
		RequestDelay:  time.Duration(config.RequestDelaySeconds * float64(time.Second)),
		CommentsDelay: time.Duration(config.CommentsSleepSeconds * float64(time.Second)),
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize web client", err)
	}

	api, err := redditapi.NewClient(redditapi.ClientOptions{
		Credentials: config.Api.Credentials,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize api client", err)
	}

	harvester := harvest.NewHarvester(
		harvestdb.NewStore(database),
		web,
		api,
		harvest.Options{
			Subreddit:           config.Subreddit,
			Source:              harvest.Source(config.Source),
			Limit:               config.Limit,
			MaxPages:            config.MaxPages,
			PollInterval:        time.Duration(config.PollSeconds) * time.Second,
			MaxPostsForComments: config.MaxPostsForComments,
			Sort:                redditapi.Sort(config.Api.Sort),
			BatchSize:           config.Api.Batch,
		},
	)

	err = harvester.Run(ctx)
	if err != nil && ctx.Err() == nil {
		serviceutil.Fatal("harvest loop exited", err)
	}
}
