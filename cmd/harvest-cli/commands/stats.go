package commands

import (
	"fmt"
	"os"

	configlibsql "redditharvest/lib/configutil/libsql"
	"redditharvest/lib/serviceutil"
	harvestdb "redditharvest/services/harvest/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statsDb *string

func init() {
	statsDb = statsCmd.Flags().String("db", "harvest.db", "The database to read stats from.")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats [--db <path/to/harvest.db>]",
	Short: "Prints a summary of the stored posts and comments.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, err := configlibsql.Struct{File: *statsDb}.OpenDB(harvestdb.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		store := harvestdb.NewStore(database)

		posts, err := store.CountPosts(ctx)
		if err != nil {
			serviceutil.Fatal("failed to count posts", err)
		}
		comments, err := store.CountComments(ctx)
		if err != nil {
			serviceutil.Fatal("failed to count comments", err)
		}
		fmt.Printf("posts: %d\ncomments: %d\n\n", posts, comments)

		subs, err := store.TopSubreddits(ctx, 10)
		if err != nil {
			serviceutil.Fatal("failed to query subreddits", err)
		}
		subTable := table.NewWriter()
		subTable.SetOutputMirror(os.Stdout)
		subTable.AppendHeader(table.Row{"subreddit", "posts"})
		for _, s := range subs {
			subTable.AppendRow(table.Row{s.Subreddit, s.Posts})
		}
		subTable.Render()

		recent, err := store.RecentPosts(ctx, 10)
		if err != nil {
			serviceutil.Fatal("failed to query recent posts", err)
		}
		postTable := table.NewWriter()
		postTable.SetOutputMirror(os.Stdout)
		postTable.AppendHeader(table.Row{"post id", "title", "score", "comments"})
		for _, p := range recent {
			score := ""
			if p.Score != nil {
				score = fmt.Sprintf("%d", *p.Score)
			}
			title := p.Title
			if len(title) > 60 {
				title = title[:57] + "..."
			}
			postTable.AppendRow(table.Row{p.PostId, title, score, p.NumComments})
		}
		postTable.Render()
	},
}
