package redditweb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type NodeKind int

const (
	// a real comment
	NodeComment NodeKind = iota
	// a "load more replies" placeholder; its descendants are not
	// reachable from this fetch
	NodeMore
)

// CommentNode is one node of a post's reply tree.
type CommentNode struct {
	Kind       NodeKind
	Id         string
	ParentId   string
	Author     string
	Body       string
	Score      *int64
	CreatedUtc *int64
	Replies    []CommentNode
}

type listingEnvelope struct {
	Kind string `json:"kind"`
	Data struct {
		Children []childEnvelope `json:"children"`
	} `json:"data"`
}

type childEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type commentPayload struct {
	Id          string          `json:"id"`
	Author      string          `json:"author"`
	Body        string          `json:"body"`
	Score       int64           `json:"score"`
	ScoreHidden bool            `json:"score_hidden"`
	CreatedUtc  float64         `json:"created_utc"`
	ParentId    string          `json:"parent_id"`
	Replies     json.RawMessage `json:"replies"`
}

// FetchCommentTree fetches the nested reply tree of one post through
// the listing's JSON detail endpoint. The response is a two element
// array: element 0 is the post listing, element 1 the comment tree.
func (c *Client) FetchCommentTree(ctx context.Context, permalink string) ([]CommentNode, error) {
	ctx, span := tracer.Start(ctx, "FetchCommentTree")
	defer span.End()
	span.SetAttributes(attribute.String("permalink", permalink))

	detailUrl := permalink
	if !strings.HasPrefix(detailUrl, "http") {
		detailUrl = c.BaseUrl.String() + permalink
	}
	detailUrl = strings.TrimSuffix(detailUrl, "/") + ".json"

	res, err := c.Http.R().
		SetContext(ctx).
		Get(detailUrl)

	sleep(ctx, c.commentsDelay)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch comment tree")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("comment endpoint returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad comment endpoint status")
		return nil, err
	}

	var envelopes []listingEnvelope
	err = json.Unmarshal(res.Body(), &envelopes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode comment tree")
		return nil, err
	}
	if len(envelopes) < 2 {
		err := fmt.Errorf("comment endpoint returned %d listings, want 2", len(envelopes))
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected comment endpoint shape")
		return nil, err
	}

	nodes := ParseCommentChildren(envelopes[1].Data.Children)
	span.SetAttributes(attribute.Int("top_level_nodes", len(nodes)))
	return nodes, nil
}

// ParseCommentChildren decodes a listing's children into the tagged
// node tree. Unknown kinds are dropped.
func ParseCommentChildren(children []childEnvelope) []CommentNode {
	var nodes []CommentNode
	for _, child := range children {
		switch child.Kind {
		case "t1":
			var payload commentPayload
			if err := json.Unmarshal(child.Data, &payload); err != nil {
				continue
			}
			node := CommentNode{
				Kind:     NodeComment,
				Id:       payload.Id,
				ParentId: payload.ParentId,
				Author:   payload.Author,
				Body:     payload.Body,
			}
			if !payload.ScoreHidden {
				score := payload.Score
				node.Score = &score
			}
			if payload.CreatedUtc > 0 {
				created := int64(payload.CreatedUtc)
				node.CreatedUtc = &created
			}
			node.Replies = parseReplies(payload.Replies)
			nodes = append(nodes, node)
		case "more":
			var payload commentPayload
			if err := json.Unmarshal(child.Data, &payload); err != nil {
				continue
			}
			nodes = append(nodes, CommentNode{
				Kind:     NodeMore,
				Id:       payload.Id,
				ParentId: payload.ParentId,
			})
		}
	}
	return nodes
}

// replies is either an empty string or a nested listing object
func parseReplies(raw json.RawMessage) []CommentNode {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var envelope listingEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	return ParseCommentChildren(envelope.Data.Children)
}
