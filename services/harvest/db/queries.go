package db

import (
	"context"
	"database/sql"
)

func (s Store) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n)
	return n, err
}

func (s Store) CountComments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&n)
	return n, err
}

type SubredditCount struct {
	Subreddit string
	Posts     int64
}

func (s Store) TopSubreddits(ctx context.Context, limit int) ([]SubredditCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subreddit, COUNT(*) AS c
		FROM posts
		GROUP BY subreddit
		ORDER BY c DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubredditCount
	for rows.Next() {
		var sc SubredditCount
		err = rows.Scan(&sc.Subreddit, &sc.Posts)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s Store) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, subreddit, title, author, selftext, url, permalink,
		       domain, is_self, score, num_comments, created_utc, fetched_at_utc
		FROM posts
		ORDER BY fetched_at_utc DESC, created_utc DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		var p Post
		var author, selftext, url, permalink, domain sql.NullString
		var score, created sql.NullInt64
		err = rows.Scan(
			&p.PostId, &p.Subreddit, &p.Title, &author, &selftext, &url,
			&permalink, &domain, &p.IsSelf, &score, &p.NumComments,
			&created, &p.FetchedAt,
		)
		if err != nil {
			return nil, err
		}
		p.Author = nullableString(author)
		p.Selftext = nullableString(selftext)
		p.Url = nullableString(url)
		p.Permalink = nullableString(permalink)
		p.Domain = nullableString(domain)
		p.Score = nullableInt(score)
		p.CreatedUtc = nullableInt(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s Store) CommentsForPost(ctx context.Context, postId string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT comment_id, post_id, parent_id, author, body, score,
		       created_utc, fetched_at_utc
		FROM comments
		WHERE post_id = ?`, postId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		var parent, author, body sql.NullString
		var score, created sql.NullInt64
		err = rows.Scan(
			&c.CommentId, &c.PostId, &parent, &author, &body,
			&score, &created, &c.FetchedAt,
		)
		if err != nil {
			return nil, err
		}
		c.ParentId = nullableString(parent)
		c.Author = nullableString(author)
		c.Body = nullableString(body)
		c.Score = nullableInt(score)
		c.CreatedUtc = nullableInt(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
