// doctalk/models/comments.go
package models

// OrganizeComments groups a flat, created_at-ordered page of comments into
// a two-level tree: rows without a parent become roots, rows with a parent
// are attached to that root's reply list.
//
// The transform only sees the rows it is given. A reply whose parent falls
// outside the fetched page has nowhere to attach and is dropped from the
// result; pagination is applied to the flat fetch, so a page boundary can
// split a parent from its replies.
func OrganizeComments(flat []Comment) []Comment {
	organized := make([]Comment, 0, len(flat))
	replies := make(map[int64][]Comment)

	for _, c := range flat {
		if c.ParentID == nil {
			c.Replies = []Comment{}
			organized = append(organized, c)
		} else {
			replies[*c.ParentID] = append(replies[*c.ParentID], c)
		}
	}

	for i := range organized {
		if r, ok := replies[organized[i].ID]; ok {
			organized[i].Replies = r
		}
	}

	return organized
}
