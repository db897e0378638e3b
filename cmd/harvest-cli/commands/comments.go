package commands

import (
	"log/slog"

	configlibsql "redditharvest/lib/configutil/libsql"
	"redditharvest/lib/scrapers/redditweb"
	"redditharvest/lib/serviceutil"
	"redditharvest/services/harvest"
	harvestdb "redditharvest/services/harvest/db"

	"github.com/spf13/cobra"
)

var commentsFlags struct {
	db     *string
	postId *string
}

func init() {
	commentsFlags.db = commentsCmd.Flags().String("db", "harvest.db", "The database to write comments to.")
	commentsFlags.postId = commentsCmd.Flags().String("post-id", "", "Store the comments under this post id; defaults to the permalink's post.")
	rootCmd.AddCommand(commentsCmd)
}

var commentsCmd = &cobra.Command{
	Use:   "comments <permalink>",
	Short: "Fetches and stores the comment tree of a single post. The post itself must already be stored.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		permalink := args[0]

		database, err := configlibsql.Struct{File: *commentsFlags.db}.OpenDB(harvestdb.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		store := harvestdb.NewStore(database)

		web, err := redditweb.NewClient(redditweb.ClientOptions{})
		if err != nil {
			serviceutil.Fatal("failed to initialize web client", err)
		}

		nodes, err := web.FetchCommentTree(ctx, permalink)
		if err != nil {
			serviceutil.Fatal("failed to fetch comment tree", err)
		}

		postId := *commentsFlags.postId
		if postId == "" {
			// top-level comments carry the post's fullname as parent
			for _, n := range nodes {
				if n.ParentId != "" {
					postId = n.ParentId
					break
				}
			}
		}
		if postId == "" {
			slog.Warn("could not determine post id, nothing stored", "permalink", permalink)
			return
		}

		comments := harvest.FlattenComments(postId, nodes)
		err = store.UpsertComments(ctx, comments)
		if err != nil {
			serviceutil.Fatal("failed to store comments", err)
		}
		slog.Info("comments stored", "post_id", postId, "count", len(comments))
	},
}
