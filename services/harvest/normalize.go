package harvest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"redditharvest/lib/scrapers/redditapi"
	"redditharvest/lib/scrapers/redditweb"
	"redditharvest/services/harvest/db"
)

var thousandsScoreRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)k$`)
var plainScoreRe = regexp.MustCompile(`^\d+$`)
var digitsRe = regexp.MustCompile(`(\d+)`)

// ParseScore interprets a listing's score text. Hidden or obscured
// scores ("•", "score hidden", "hidden", empty) and anything else
// unparseable come back nil; parsing never fails the record.
func ParseScore(text string) *int64 {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "", "•", "score hidden", "hidden":
		return nil
	}
	if m := thousandsScoreRe.FindStringSubmatch(t); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		score := int64(math.Round(f * 1000))
		return &score
	}
	if plainScoreRe.MatchString(t) {
		score, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil
		}
		return &score
	}
	return nil
}

// ParseCommentCount pulls the first digit run out of free text like
// "1,234 comments". No digits means zero.
func ParseCommentCount(text string) int64 {
	if text == "" {
		return 0
	}
	m := digitsRe.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseTimestamp converts an ISO-8601 string (a trailing literal Z is
// accepted) to epoch seconds UTC. Malformed input yields nil.
func ParseTimestamp(text string) *int64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		parsed, err := time.Parse(layout, t)
		if err != nil {
			continue
		}
		epoch := parsed.UTC().Unix()
		return &epoch
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PostFromListing converts one scraped listing row to a canonical
// post. Rows missing a discoverable id or a title are dropped, the
// second return reports whether the row survived.
func PostFromListing(lp redditweb.ListingPost) (db.Post, bool) {
	if lp.Fullname == "" || lp.Title == "" {
		return db.Post{}, false
	}

	return db.Post{
		PostId:      lp.Fullname,
		Subreddit:   lp.Subreddit,
		Title:       lp.Title,
		Author:      strPtr(lp.Author),
		Url:         strPtr(lp.Url),
		Permalink:   strPtr(lp.Permalink),
		Domain:      strPtr(lp.Domain),
		Score:       ParseScore(lp.ScoreText),
		NumComments: ParseCommentCount(lp.CommentsText),
		CreatedUtc:  ParseTimestamp(lp.CreatedRaw),
	}, true
}

// PostFromSubmission converts an API submission to a canonical post.
// The typed fullname is used as the id so both sources agree on
// identity (the listing crawler only ever sees fullnames); the short
// id covers for a missing fullname.
func PostFromSubmission(sub redditapi.Submission) (db.Post, bool) {
	id := sub.Fullname
	if id == "" {
		id = sub.Id
	}
	if id == "" || sub.Title == "" {
		return db.Post{}, false
	}

	author := sub.Author
	if author == "" {
		author = "[deleted]"
	}

	score := sub.Score
	post := db.Post{
		PostId:      id,
		Subreddit:   sub.Subreddit,
		Title:       sub.Title,
		Author:      &author,
		Selftext:    strPtr(sub.Selftext),
		Url:         strPtr(sub.Url),
		Permalink:   strPtr(sub.Permalink),
		IsSelf:      sub.IsSelf,
		Score:       &score,
		NumComments: sub.NumComments,
	}
	if sub.CreatedUtc > 0 {
		created := sub.CreatedUtc
		post.CreatedUtc = &created
	}
	return post, true
}
