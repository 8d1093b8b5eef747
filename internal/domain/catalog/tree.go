package catalog

import (
	"github.com/google/uuid"
)

// TreeNode is a category placed in a forest, with its depth and ordered children
type TreeNode struct {
	Category    Category
	Level       int
	Children    []*TreeNode
	HasChildren bool
}

// HierarchyIssueKind classifies a parent reference that could not be honored
type HierarchyIssueKind string

const (
	IssueDanglingParent HierarchyIssueKind = "dangling_parent"
	IssueSelfParent     HierarchyIssueKind = "self_parent"
	IssueCycle          HierarchyIssueKind = "cycle"
	IssueDuplicateID    HierarchyIssueKind = "duplicate_id"
)

// HierarchyIssue describes a category that BuildTree promotes to a root
type HierarchyIssue struct {
	CategoryID uuid.UUID
	ParentID   *uuid.UUID
	Kind       HierarchyIssueKind
}

// hierarchy is the id-indexed view of a category snapshot shared by the tree functions.
// parent[i] is the index of the resolved parent of categories[i], or -1 for a root.
type hierarchy struct {
	categories []Category
	index      map[uuid.UUID]int
	parent     []int
	issues     []HierarchyIssue
}

func analyzeHierarchy(categories []Category) *hierarchy {
	h := &hierarchy{
		categories: categories,
		index:      make(map[uuid.UUID]int, len(categories)),
		parent:     make([]int, len(categories)),
	}

	for i := range categories {
		if _, exists := h.index[categories[i].ID]; exists {
			h.issues = append(h.issues, HierarchyIssue{CategoryID: categories[i].ID, ParentID: categories[i].ParentID, Kind: IssueDuplicateID})
			continue
		}
		h.index[categories[i].ID] = i
	}

	for i := range categories {
		h.parent[i] = -1
		c := &categories[i]
		if c.ParentID == nil {
			continue
		}
		p, ok := h.index[*c.ParentID]
		switch {
		case !ok:
			h.issues = append(h.issues, HierarchyIssue{CategoryID: c.ID, ParentID: c.ParentID, Kind: IssueDanglingParent})
		case *c.ParentID == c.ID:
			h.issues = append(h.issues, HierarchyIssue{CategoryID: c.ID, ParentID: c.ParentID, Kind: IssueSelfParent})
		default:
			h.parent[i] = p
		}
	}

	h.breakCycles()
	return h
}

// breakCycles promotes every category that sits on a parent cycle to a root.
// Each category has at most one parent, so a single colored walk per chain finds all cycles in O(n).
func (h *hierarchy) breakCycles() {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(h.categories))
	path := make([]int, 0)

	for start := range h.categories {
		if state[start] != unvisited {
			continue
		}
		path = path[:0]
		cur := start
		for cur != -1 && state[cur] == unvisited {
			state[cur] = onPath
			path = append(path, cur)
			cur = h.parent[cur]
		}
		if cur != -1 && state[cur] == onPath {
			// cur is the first cycle member reached; everything after it on the path is on the cycle
			inCycle := false
			for _, n := range path {
				if n == cur {
					inCycle = true
				}
				if inCycle {
					c := &h.categories[n]
					h.issues = append(h.issues, HierarchyIssue{CategoryID: c.ID, ParentID: c.ParentID, Kind: IssueCycle})
					h.parent[n] = -1
				}
			}
		}
		for _, n := range path {
			state[n] = done
		}
	}
}

// BuildTree converts a flat category list into a forest. Children keep the input order.
// Categories whose parent is missing, is themselves, or that sit on a parent cycle
// become roots, so every input category appears exactly once in the result.
func BuildTree(categories []Category) []*TreeNode {
	h := analyzeHierarchy(categories)

	nodes := make([]*TreeNode, len(categories))
	for i := range categories {
		nodes[i] = &TreeNode{
			Category: categories[i],
			Children: []*TreeNode{},
		}
	}

	roots := make([]*TreeNode, 0)
	for i, node := range nodes {
		p := h.parent[i]
		if p < 0 {
			roots = append(roots, node)
			continue
		}
		parent := nodes[p]
		parent.Children = append(parent.Children, node)
		parent.HasChildren = true
	}

	// Levels are assigned top-down so they do not depend on whether a parent precedes its children in the input
	stack := make([]*TreeNode, 0, len(roots))
	stack = append(stack, roots...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range node.Children {
			child.Level = node.Level + 1
			stack = append(stack, child)
		}
	}

	return roots
}

// Flatten returns the forest in depth-first preorder: a node, then its children in stored order
func Flatten(forest []*TreeNode) []*TreeNode {
	result := make([]*TreeNode, 0, len(forest))
	var visit func(nodes []*TreeNode)
	visit = func(nodes []*TreeNode) {
		for _, node := range nodes {
			result = append(result, node)
			visit(node.Children)
		}
	}
	visit(forest)
	return result
}

// CountNodes returns the number of nodes in the forest
func CountNodes(forest []*TreeNode) int {
	n := 0
	for _, node := range forest {
		n += 1 + CountNodes(node.Children)
	}
	return n
}

// ValidateHierarchy reports every parent reference BuildTree cannot honor
func ValidateHierarchy(categories []Category) []HierarchyIssue {
	return analyzeHierarchy(categories).issues
}

// WouldCreateCycle reports whether giving category id the parent newParentID
// would make id its own ancestor in the given snapshot.
func WouldCreateCycle(categories []Category, id, newParentID uuid.UUID) bool {
	if id == newParentID {
		return true
	}
	parents := make(map[uuid.UUID]*uuid.UUID, len(categories))
	for i := range categories {
		parents[categories[i].ID] = categories[i].ParentID
	}

	seen := make(map[uuid.UUID]struct{})
	cur := newParentID
	for {
		if cur == id {
			return true
		}
		if _, ok := seen[cur]; ok {
			// an existing cycle that does not contain id
			return false
		}
		seen[cur] = struct{}{}
		next, ok := parents[cur]
		if !ok || next == nil {
			return false
		}
		cur = *next
	}
}

// DirectChildren returns the categories whose parent is parentID, in snapshot order
func DirectChildren(categories []Category, parentID uuid.UUID) []Category {
	children := make([]Category, 0)
	for i := range categories {
		if categories[i].ParentID != nil && *categories[i].ParentID == parentID {
			children = append(children, categories[i])
		}
	}
	return children
}
