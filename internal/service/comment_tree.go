package service

import (
	"sort"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
)

// BuildForest arranges the comments of one post into root nodes with nested
// replies. Every level is ordered newest first (created_at, then id).
//
// Every input comment appears exactly once in the result. Comments whose
// parent is missing, or that sit on a parent cycle, are promoted to roots.
func BuildForest(comments []*models.Comment) []*models.CommentNode {
	sorted := make([]*models.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	nodes := make(map[uint]*models.CommentNode, len(sorted))
	for _, c := range sorted {
		nodes[c.ID] = &models.CommentNode{Comment: c, Replies: []*models.CommentNode{}}
	}

	parentOf := make(map[uint]uint, len(sorted))
	roots := make([]*models.CommentNode, 0)
	for _, c := range sorted {
		node := nodes[c.ID]
		if c.ParentID != nil && *c.ParentID != c.ID {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				parentOf[c.ID] = parent.ID
				continue
			}
		}
		roots = append(roots, node)
	}

	visited := make(map[uint]bool, len(sorted))
	var mark func(n *models.CommentNode)
	mark = func(n *models.CommentNode) {
		visited[n.ID] = true
		for _, r := range n.Replies {
			if !visited[r.ID] {
				mark(r)
			}
		}
	}
	for _, r := range roots {
		mark(r)
	}

	// Anything still unvisited hangs off a cycle. Cut it loose and promote it.
	var promoted bool
	for _, c := range sorted {
		if visited[c.ID] {
			continue
		}
		node := nodes[c.ID]
		if pid, ok := parentOf[c.ID]; ok {
			parent := nodes[pid]
			parent.Replies = removeNode(parent.Replies, node)
		}
		roots = append(roots, node)
		promoted = true
		mark(node)
	}
	if promoted {
		sortNodes(roots)
	}
	return roots
}

// FindNode returns the node with id in the forest, or nil.
func FindNode(forest []*models.CommentNode, id uint) *models.CommentNode {
	for _, n := range forest {
		if n.ID == id {
			return n
		}
		if found := FindNode(n.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// CountNodes returns the number of comments in the forest.
func CountNodes(forest []*models.CommentNode) int {
	total := 0
	for _, n := range forest {
		total += n.Count()
	}
	return total
}

func removeNode(list []*models.CommentNode, target *models.CommentNode) []*models.CommentNode {
	for i, n := range list {
		if n == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func sortNodes(list []*models.CommentNode) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
