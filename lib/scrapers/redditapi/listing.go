package redditapi

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// Submission is one post as the structured API reports it.
type Submission struct {
	Id          string
	Fullname    string
	Subreddit   string
	Title       string
	Selftext    string
	Url         string
	IsSelf      bool
	Score       int64
	NumComments int64
	CreatedUtc  int64
	Author      string
	Permalink   string
}

type submissionPayload struct {
	Id          string  `json:"id"`
	Name        string  `json:"name"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Url         string  `json:"url"`
	IsSelf      bool    `json:"is_self"`
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	CreatedUtc  float64 `json:"created_utc"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
}

type listingResponse struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string            `json:"kind"`
			Data submissionPayload `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (p submissionPayload) toSubmission() Submission {
	return Submission{
		Id:          p.Id,
		Fullname:    p.Name,
		Subreddit:   p.Subreddit,
		Title:       p.Title,
		Selftext:    p.Selftext,
		Url:         p.Url,
		IsSelf:      p.IsSelf,
		Score:       p.Score,
		NumComments: p.NumComments,
		CreatedUtc:  int64(p.CreatedUtc),
		Author:      p.Author,
		Permalink:   p.Permalink,
	}
}

type restySource struct {
	http *resty.Client
}

func (s restySource) listPage(ctx context.Context, subreddit string, sort Sort, limit int, after string) ([]Submission, string, error) {
	var body listingResponse
	req := s.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("raw_json", "1")
	if after != "" {
		req.SetQueryParam("after", after)
	}
	if sort == SortTop {
		req.SetQueryParam("t", "all")
	}

	res, err := req.Get(fmt.Sprintf("/r/%s/%s.json", subreddit, sort))
	if err != nil {
		return nil, "", err
	}
	if res.IsError() {
		return nil, "", fmt.Errorf("listing returned status %d", res.StatusCode())
	}

	items := make([]Submission, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		items = append(items, child.Data.toSubmission())
	}
	return items, body.Data.After, nil
}

func (s restySource) searchWindow(ctx context.Context, subreddit string, upper int64, limit int) ([]Submission, error) {
	var body listingResponse
	res, err := s.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParam("q", fmt.Sprintf("timestamp:0..%d", upper)).
		SetQueryParam("syntax", "cloudsearch").
		SetQueryParam("sort", "new").
		SetQueryParam("restrict_sr", "on").
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("raw_json", "1").
		Get(fmt.Sprintf("/r/%s/search.json", subreddit))
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("search returned status %d", res.StatusCode())
	}

	items := make([]Submission, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		items = append(items, child.Data.toSubmission())
	}
	return items, nil
}
