package analytics

import (
	"sort"
	"strings"

	"complaints/internal/core"
)

// RootLabel names the synthetic root of the breakdown tree.
const RootLabel = "All"

type treeBuilder struct {
	value    int64
	children map[string]*treeBuilder
}

func (b *treeBuilder) child(name string) *treeBuilder {
	if b.children == nil {
		b.children = map[string]*treeBuilder{}
	}
	c, ok := b.children[name]
	if !ok {
		c = &treeBuilder{}
		b.children[name] = c
	}
	return c
}

func (b *treeBuilder) node(name string) core.TreeNode {
	n := core.TreeNode{Name: name, Value: b.value}
	if len(b.children) == 0 {
		return n
	}
	names := make([]string, 0, len(b.children))
	for k := range b.children {
		names = append(names, k)
	}
	sort.Strings(names)
	n.Children = make([]core.TreeNode, 0, len(names))
	for _, k := range names {
		n.Children = append(n.Children, b.children[k].node(k))
	}
	return n
}

// BuildTree builds the state -> issue -> sub_issue breakdown directly from
// rows. Each row adds its count to its leaf and to every ancestor, so rows
// sharing a path accumulate on one leaf. A blank sub_issue is placed under
// core.NoSubIssueLabel; a blank issue under core.UnknownLabel.
func BuildTree(records []core.Complaint) core.TreeNode {
	root := &treeBuilder{}
	for _, r := range records {
		sub := strings.TrimSpace(r.SubIssue)
		if sub == "" {
			sub = core.NoSubIssueLabel
		}
		path := []string{core.OrUnknown(r.State), core.OrUnknown(r.Issue), sub}
		node := root
		node.value += r.Count
		for _, name := range path {
			node = node.child(name)
			node.value += r.Count
		}
	}
	return root.node(RootLabel)
}
