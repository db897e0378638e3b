package redditweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const commentTreeFixture = `[
  {
    "kind": "Listing",
    "data": {"children": [{"kind": "t3", "data": {"id": "abc", "title": "the post"}}]}
  },
  {
    "kind": "Listing",
    "data": {"children": [
      {"kind": "t1", "data": {
        "id": "c1", "author": "alice", "body": "top level",
        "score": 5, "created_utc": 1700000000.0, "parent_id": "t3_abc",
        "replies": {
          "kind": "Listing",
          "data": {"children": [
            {"kind": "t1", "data": {
              "id": "c2", "author": "bob", "body": "reply",
              "score": 3, "score_hidden": true, "parent_id": "t1_c1",
              "replies": ""
            }},
            {"kind": "more", "data": {"id": "m1", "parent_id": "t1_c1", "children": ["c9", "c10"]}}
          ]}
        }
      }},
      {"kind": "t1", "data": {
        "id": "c3", "author": "carol", "body": "second thread",
        "score": 1, "parent_id": "t3_abc", "replies": ""
      }},
      {"kind": "unknown", "data": {"id": "zz"}}
    ]}
  }
]`

func TestParseCommentChildren(t *testing.T) {
	var envelopes []listingEnvelope
	require.NoError(t, json.Unmarshal([]byte(commentTreeFixture), &envelopes))
	require.Len(t, envelopes, 2)

	nodes := ParseCommentChildren(envelopes[1].Data.Children)
	require.Len(t, nodes, 2)

	top := nodes[0]
	require.Equal(t, NodeComment, top.Kind)
	require.Equal(t, "c1", top.Id)
	require.Equal(t, "t3_abc", top.ParentId)
	require.Equal(t, "alice", top.Author)
	require.Equal(t, "top level", top.Body)
	require.NotNil(t, top.Score)
	require.Equal(t, int64(5), *top.Score)
	require.NotNil(t, top.CreatedUtc)
	require.Equal(t, int64(1700000000), *top.CreatedUtc)

	require.Len(t, top.Replies, 2)

	// hidden scores come through as nil, not zero
	reply := top.Replies[0]
	require.Equal(t, "c2", reply.Id)
	require.Nil(t, reply.Score)
	require.Empty(t, reply.Replies)

	more := top.Replies[1]
	require.Equal(t, NodeMore, more.Kind)
	require.Equal(t, "m1", more.Id)
	require.Equal(t, "t1_c1", more.ParentId)

	second := nodes[1]
	require.Equal(t, "c3", second.Id)
	require.Equal(t, "t3_abc", second.ParentId)
}

func TestFetchCommentTree(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		fmt.Fprint(w, commentTreeFixture)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	nodes, err := client.FetchCommentTree(context.Background(), "/r/tech/comments/abc/the_post/")
	require.NoError(t, err)

	// trailing slash swapped for the .json suffix
	require.Equal(t, "/r/tech/comments/abc/the_post.json", requestedPath)
	require.Len(t, nodes, 2)
}

func TestFetchCommentTreeBadShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// only the post listing, no comment listing
		fmt.Fprint(w, `[{"kind": "Listing", "data": {"children": []}}]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchCommentTree(context.Background(), "/r/tech/comments/abc/")
	require.Error(t, err)
}
