package scoring

import (
	"sort"

	"facad/repository"
)

// MaxTreeDepth bounds the aggregation recursion. Real tables are three or
// four levels deep; anything past this is corrupt data.
const MaxTreeDepth = 32

// TreeNode is a scoring node with its resolved, ordered children.
type TreeNode struct {
	*repository.ScoringNode
	Children []*TreeNode
}

// BuildTree assembles a flat node list into an ordered forest. A node
// whose parent id is absent from the input becomes a root instead of
// failing the build. Nodes trapped in a parent cycle are promoted to
// roots as well, so every input node is reachable exactly once.
func BuildTree(nodes []*repository.ScoringNode) []*TreeNode {
	byId := make(map[int]*TreeNode, len(nodes))
	for _, node := range nodes {
		byId[node.Id] = &TreeNode{ScoringNode: node}
	}

	roots := make([]*TreeNode, 0)
	for _, node := range nodes {
		if node.ParentId == nil || byId[*node.ParentId] == nil {
			roots = append(roots, byId[node.Id])
			continue
		}
		parent := byId[*node.ParentId]
		parent.Children = append(parent.Children, byId[node.Id])
	}
	roots = append(roots, promoteCycleNodes(byId, roots)...)

	sortForest(roots)
	sort.Slice(roots, func(i, j int) bool { return lessNode(roots[i], roots[j]) })
	return roots
}

// promoteCycleNodes returns one root per parent cycle, detaching it from
// its parent's child list so the cycle unwinds into a chain.
func promoteCycleNodes(byId map[int]*TreeNode, roots []*TreeNode) []*TreeNode {
	reachable := make(map[int]bool, len(byId))
	var visit func(node *TreeNode)
	visit = func(node *TreeNode) {
		if reachable[node.Id] {
			return
		}
		reachable[node.Id] = true
		for _, child := range node.Children {
			visit(child)
		}
	}
	for _, root := range roots {
		visit(root)
	}

	promoted := make([]*TreeNode, 0)
	for {
		candidate := (*TreeNode)(nil)
		for _, node := range byId {
			if !reachable[node.Id] && (candidate == nil || node.Id < candidate.Id) {
				candidate = node
			}
		}
		if candidate == nil {
			return promoted
		}
		parent := byId[*candidate.ParentId]
		for i, child := range parent.Children {
			if child.Id == candidate.Id {
				parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
				break
			}
		}
		promoted = append(promoted, candidate)
		visit(candidate)
	}
}

func lessNode(a, b *TreeNode) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.Id < b.Id
}

func sortForest(nodes []*TreeNode) {
	for _, node := range nodes {
		sort.Slice(node.Children, func(i, j int) bool { return lessNode(node.Children[i], node.Children[j]) })
		sort.Slice(node.Items, func(i, j int) bool { return node.Items[i].Id < node.Items[j].Id })
		sortForest(node.Children)
	}
}

// CountNodes returns the number of nodes in the forest.
func CountNodes(roots []*TreeNode) int {
	count := 0
	for _, root := range roots {
		count += 1 + CountNodes(root.Children)
	}
	return count
}
