package db_test

import (
	"context"
	"testing"

	"redditharvest/lib/testutil"
	"redditharvest/services/harvest/db"

	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (db.Store, func()) {
	service, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "harvest-db",
		DbSchema: db.Schema,
	})
	return db.NewStore(service.DB), cleanup
}

func strPtr(s string) *string { return &s }
func intPtr(v int64) *int64   { return &v }

func samplePost(id string) db.Post {
	return db.Post{
		PostId:      id,
		Subreddit:   "tech",
		Title:       "original title",
		Author:      strPtr("alice"),
		Url:         strPtr("https://example.com/article"),
		Permalink:   strPtr("/r/tech/comments/" + id + "/original_title/"),
		Domain:      strPtr("example.com"),
		Score:       intPtr(10),
		NumComments: 2,
		CreatedUtc:  intPtr(1700000000),
	}
}

func TestUpsertPostsIdempotent(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	post := samplePost("t3_a")
	require.NoError(t, store.UpsertPosts(ctx, []db.Post{post}))

	// second sighting of the same post with fresher mutable fields
	post.Title = "edited title"
	post.Score = intPtr(42)
	post.NumComments = 9
	require.NoError(t, store.UpsertPosts(ctx, []db.Post{post}))

	count, err := store.CountPosts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	rows, err := store.RecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "t3_a", rows[0].PostId)
	require.Equal(t, "edited title", rows[0].Title)
	require.Equal(t, int64(42), *rows[0].Score)
	require.Equal(t, int64(9), rows[0].NumComments)
	require.Equal(t, "tech", rows[0].Subreddit)
}

func TestUpsertPostsPermalinkUnique(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	first := samplePost("t3_a")
	require.NoError(t, store.UpsertPosts(ctx, []db.Post{first}))

	// a different id claiming the same permalink is a data bug and
	// must be rejected, not silently stored
	second := samplePost("t3_b")
	second.Permalink = first.Permalink
	require.Error(t, store.UpsertPosts(ctx, []db.Post{second}))

	count, err := store.CountPosts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestUpsertCommentsIdempotent(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.UpsertPosts(ctx, []db.Post{samplePost("t3_a")}))

	comment := db.Comment{
		CommentId: "t1_c1",
		PostId:    "t3_a",
		ParentId:  strPtr("t3_a"),
		Author:    strPtr("bob"),
		Body:      strPtr("first body"),
		Score:     intPtr(1),
	}
	require.NoError(t, store.UpsertComments(ctx, []db.Comment{comment}))

	comment.Body = strPtr("edited body")
	comment.Score = intPtr(3)
	require.NoError(t, store.UpsertComments(ctx, []db.Comment{comment}))

	rows, err := store.CommentsForPost(ctx, "t3_a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "edited body", *rows[0].Body)
	require.Equal(t, int64(3), *rows[0].Score)
}

func TestUpsertCommentsRejectsOrphans(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	err := store.UpsertComments(ctx, []db.Comment{
		{CommentId: "t1_c1", PostId: "t3_missing", Body: strPtr("no parent post")},
	})
	require.Error(t, err)

	count, err := store.CountComments(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestDeletePostCascades(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.UpsertPosts(ctx, []db.Post{samplePost("t3_a"), samplePost2("t3_b")}))
	require.NoError(t, store.UpsertComments(ctx, []db.Comment{
		{CommentId: "t1_c1", PostId: "t3_a"},
		{CommentId: "t1_c2", PostId: "t3_a"},
		{CommentId: "t1_c3", PostId: "t3_b"},
	}))

	require.NoError(t, store.DeletePost(ctx, "t3_a"))

	count, err := store.CountPosts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	comments, err := store.CommentsForPost(ctx, "t3_a")
	require.NoError(t, err)
	require.Empty(t, comments)

	comments, err = store.CommentsForPost(ctx, "t3_b")
	require.NoError(t, err)
	require.Len(t, comments, 1)
}

func samplePost2(id string) db.Post {
	p := samplePost(id)
	p.Permalink = strPtr("/r/tech/comments/" + id + "/other/")
	return p
}

func TestTopSubreddits(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	posts := []db.Post{samplePost("t3_a"), samplePost2("t3_b")}
	other := samplePost("t3_c")
	other.Subreddit = "news"
	other.Permalink = strPtr("/r/news/comments/t3_c/x/")
	posts = append(posts, other)
	require.NoError(t, store.UpsertPosts(ctx, posts))

	top, err := store.TopSubreddits(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "tech", top[0].Subreddit)
	require.Equal(t, int64(2), top[0].Posts)
	require.Equal(t, "news", top[1].Subreddit)
	require.Equal(t, int64(1), top[1].Posts)
}
