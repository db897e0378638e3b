package redditapi

import (
	"context"
	"net/url"
	"time"

	"redditharvest/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/redditapi")

type Sort string

const (
	SortNew Sort = "new"
	SortHot Sort = "hot"
	SortTop Sort = "top"
)

// Credentials are treated as opaque secrets, the token exchange with
// the provider is out of scope. They are attached verbatim to every
// request.
type Credentials struct {
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	UserAgent    string `json:"user_agent"`
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	src     source
	delay   time.Duration
	backoff time.Duration
}

type ClientOptions struct {
	Credentials Credentials
	// defaults to https://www.reddit.com
	BaseUrl string
	// politeness delay between page fetches, defaults to 500ms
	RequestDelay time.Duration
	// fixed sleep before retrying a transient source error, defaults to 3s
	RetryBackoff time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://www.reddit.com"
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = 500 * time.Millisecond
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 3 * time.Second
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(time.Second * 30)
	if opts.Credentials.UserAgent != "" {
		client.SetHeader("user-agent", opts.Credentials.UserAgent)
	}
	if opts.Credentials.ClientId != "" {
		client.SetBasicAuth(opts.Credentials.ClientId, opts.Credentials.ClientSecret)
	}

	telemetry.InstrumentResty(client, "scrapers/redditapi/http")

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
		delay:   opts.RequestDelay,
		backoff: opts.RetryBackoff,
	}
	c.src = restySource{http: client}
	return c, nil
}

// source is the raw page boundary, separated out so the cursor can be
// exercised without a network.
type source interface {
	listPage(ctx context.Context, subreddit string, sort Sort, limit int, after string) ([]Submission, string, error)
	searchWindow(ctx context.Context, subreddit string, upper int64, limit int) ([]Submission, error)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
