package db

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/harvest/db")

// Post is a canonical post row. Nil pointer fields persist as NULL.
type Post struct {
	PostId      string
	Subreddit   string
	Title       string
	Author      *string
	Selftext    *string
	Url         *string
	Permalink   *string
	Domain      *string
	IsSelf      bool
	Score       *int64
	NumComments int64
	CreatedUtc  *int64
	FetchedAt   int64
}

// Comment is a canonical comment row. PostId must reference a stored
// post, the schema enforces it.
type Comment struct {
	CommentId  string
	PostId     string
	ParentId   *string
	Author     *string
	Body       *string
	Score      *int64
	CreatedUtc *int64
	FetchedAt  int64
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

const upsertPostQuery = `
INSERT INTO posts
  (post_id, subreddit, title, author, selftext, url, permalink, domain,
   is_self, score, num_comments, created_utc, fetched_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(post_id) DO UPDATE SET
  title = excluded.title,
  author = excluded.author,
  selftext = excluded.selftext,
  url = excluded.url,
  domain = excluded.domain,
  is_self = excluded.is_self,
  score = excluded.score,
  num_comments = excluded.num_comments,
  created_utc = excluded.created_utc,
  fetched_at_utc = excluded.fetched_at_utc
`

// UpsertPosts writes the batch in one transaction: new primary keys
// insert, existing ones overwrite only the mutable columns. The
// fetched_at_utc stamp is taken once per call.
func (s Store) UpsertPosts(ctx context.Context, posts []Post) error {
	ctx, span := tracer.Start(ctx, "UpsertPosts")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(posts)))

	if len(posts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPostQuery)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, p := range posts {
		_, err = stmt.ExecContext(ctx,
			p.PostId, p.Subreddit, p.Title, p.Author, p.Selftext,
			p.Url, p.Permalink, p.Domain, p.IsSelf, p.Score,
			p.NumComments, p.CreatedUtc, now,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

const upsertCommentQuery = `
INSERT INTO comments
  (comment_id, post_id, parent_id, author, body, score, created_utc, fetched_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(comment_id) DO UPDATE SET
  author = excluded.author,
  body = excluded.body,
  score = excluded.score,
  created_utc = excluded.created_utc,
  fetched_at_utc = excluded.fetched_at_utc
`

// UpsertComments mirrors UpsertPosts for comment rows. A foreign key
// violation aborts the whole batch, that is a data-model breach and
// not something to paper over row by row.
func (s Store) UpsertComments(ctx context.Context, comments []Comment) error {
	ctx, span := tracer.Start(ctx, "UpsertComments")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(comments)))

	if len(comments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertCommentQuery)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, c := range comments {
		_, err = stmt.ExecContext(ctx,
			c.CommentId, c.PostId, c.ParentId, c.Author, c.Body,
			c.Score, c.CreatedUtc, now,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// DeletePost removes a post; the schema cascades its comments.
// Deletion is a storage administration concern, the pipeline itself
// never calls this.
func (s Store) DeletePost(ctx context.Context, postId string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE post_id = ?", postId)
	return err
}
