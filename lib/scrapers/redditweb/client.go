package redditweb

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"redditharvest/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/redditweb")

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client scrapes the old-reddit HTML listing. No authentication is
// involved, the listing pages are public.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	// politeness delay enforced after every page fetch, success or not
	delay time.Duration
	// delay enforced after every comment tree fetch
	commentsDelay time.Duration
}

type ClientOptions struct {
	// defaults to https://old.reddit.com
	BaseUrl string
	// defaults to 2s
	RequestDelay time.Duration
	// defaults to 1.5s
	CommentsDelay time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://old.reddit.com"
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = 2 * time.Second
	}
	if opts.CommentsDelay <= 0 {
		opts.CommentsDelay = 1500 * time.Millisecond
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", defaultUserAgent)
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/redditweb/http")

	return &Client{
		BaseUrl:       baseUrl,
		Http:          client,
		delay:         opts.RequestDelay,
		commentsDelay: opts.CommentsDelay,
	}, nil
}

func (c *Client) listingUrl(subreddit string) string {
	return fmt.Sprintf("%s/r/%s/", c.BaseUrl, subreddit)
}
