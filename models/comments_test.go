package models

import (
	"testing"
)

func intPtr(v int64) *int64 { return &v }

func TestOrganizeComments(t *testing.T) {
	t.Run("Builds Two-Level Tree", func(t *testing.T) {
		flat := []Comment{
			{ID: 1, Content: "root one"},
			{ID: 2, Content: "root two"},
			{ID: 3, ParentID: intPtr(1), Content: "reply to one"},
			{ID: 4, ParentID: intPtr(1), Content: "second reply to one"},
			{ID: 5, ParentID: intPtr(2), Content: "reply to two"},
		}

		roots := OrganizeComments(flat)
		if len(roots) != 2 {
			t.Fatalf("Expected 2 root comments, got %d", len(roots))
		}
		if roots[0].ID != 1 || roots[1].ID != 2 {
			t.Errorf("Expected roots [1 2], got [%d %d]", roots[0].ID, roots[1].ID)
		}
		if len(roots[0].Replies) != 2 {
			t.Fatalf("Expected 2 replies on comment 1, got %d", len(roots[0].Replies))
		}
		if roots[0].Replies[0].ID != 3 || roots[0].Replies[1].ID != 4 {
			t.Errorf("Replies on comment 1 out of order: [%d %d]", roots[0].Replies[0].ID, roots[0].Replies[1].ID)
		}
		if len(roots[1].Replies) != 1 || roots[1].Replies[0].ID != 5 {
			t.Errorf("Expected one reply (5) on comment 2, got %+v", roots[1].Replies)
		}
	})

	t.Run("Roots Always Get Non-Nil Replies", func(t *testing.T) {
		roots := OrganizeComments([]Comment{{ID: 7}})
		if roots[0].Replies == nil {
			t.Error("Expected empty replies slice, got nil")
		}
		if len(roots[0].Replies) != 0 {
			t.Errorf("Expected no replies, got %d", len(roots[0].Replies))
		}
	})

	t.Run("Drops Replies Whose Parent Is Not In The Page", func(t *testing.T) {
		flat := []Comment{
			{ID: 10},
			{ID: 11, ParentID: intPtr(999)},
		}
		roots := OrganizeComments(flat)
		if len(roots) != 1 {
			t.Fatalf("Expected 1 root, got %d", len(roots))
		}
		if len(roots[0].Replies) != 0 {
			t.Errorf("Expected orphan reply to be dropped, got %+v", roots[0].Replies)
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		roots := OrganizeComments(nil)
		if len(roots) != 0 {
			t.Errorf("Expected empty result, got %d roots", len(roots))
		}
	})

	t.Run("Does Not Mutate Input Order", func(t *testing.T) {
		flat := []Comment{
			{ID: 1},
			{ID: 2, ParentID: intPtr(1)},
			{ID: 3},
		}
		roots := OrganizeComments(flat)
		if roots[0].ID != 1 || roots[1].ID != 3 {
			t.Errorf("Expected roots to keep input order [1 3], got [%d %d]", roots[0].ID, roots[1].ID)
		}
	})
}
