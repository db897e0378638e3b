package harvest

import (
	"redditharvest/lib/scrapers/redditweb"
	"redditharvest/services/harvest/db"
)

// FlattenComments walks a post's reply tree depth-first in pre-order
// and emits one row per real comment. "load more replies" placeholders
// are skipped without recursing, so their descendants are unreachable
// from this pass; that subtree stays unfetched until a later cycle
// happens to surface it. parent_id is copied verbatim from the source
// linkage, pointing at either the post or an ancestor comment.
func FlattenComments(postId string, nodes []redditweb.CommentNode) []db.Comment {
	var out []db.Comment
	seen := map[string]bool{}

	var walk func(nodes []redditweb.CommentNode)
	walk = func(nodes []redditweb.CommentNode) {
		for _, node := range nodes {
			if node.Kind == redditweb.NodeMore {
				continue
			}
			if node.Id == "" || seen[node.Id] {
				continue
			}
			seen[node.Id] = true

			out = append(out, db.Comment{
				CommentId:  node.Id,
				PostId:     postId,
				ParentId:   strPtr(node.ParentId),
				Author:     strPtr(node.Author),
				Body:       strPtr(node.Body),
				Score:      node.Score,
				CreatedUtc: node.CreatedUtc,
			})
			walk(node.Replies)
		}
	}
	walk(nodes)

	return out
}
