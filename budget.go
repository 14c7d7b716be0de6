// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "sort"

// BudgetNode is one entry point or inline class in the heap-usage
// breakdown tree (spec §4.6 step 5).
type BudgetNode struct {
	Class       string
	OwnHeap     int // heap entries attributed directly to this class
	Cumulative  int // OwnHeap plus every descendant's Cumulative
	Children    []*BudgetNode
}

// SplitCandidate estimates the heap usage if class were compiled as
// its own independent entry point (spec §4.6 step 5).
type SplitCandidate struct {
	Class         string
	EstimatedHeap int
}

// BudgetReport is returned whenever an entry point's heap usage
// exceeds its configured limit.
type BudgetReport struct {
	EntryPoint      string
	TotalHeap       int
	Limit           int
	Breakdown       *BudgetNode
	SplitCandidates []SplitCandidate
}

// CheckBudget compares totalHeap against limit and, if it is exceeded,
// builds the tree breakdown and top-ten split-candidate list (spec
// §4.6 step 5). classUsage maps class name to the heap entries it
// introduced; reachable is R(E), the inline classes transitively
// reachable from entry (excluding entry itself); children maps a class
// to the inline classes it directly references, used to walk the
// breakdown tree. estimateSplit, given a candidate class, returns the
// heap usage of compiling that class alone as an entry point.
func CheckBudget(
	entry string,
	totalHeap int,
	limit int,
	classUsage map[string]int,
	children map[string][]string,
	reachable []string,
	estimateSplit func(class string) int,
) *BudgetReport {
	if totalHeap <= limit {
		return nil
	}

	breakdown := buildBreakdownTree(entry, classUsage, children, map[string]bool{})
	attributeDeficit(breakdown, totalHeap)

	candidates := make([]SplitCandidate, 0, len(reachable))
	for _, cls := range reachable {
		candidates = append(candidates, SplitCandidate{Class: cls, EstimatedHeap: estimateSplit(cls)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].EstimatedHeap != candidates[j].EstimatedHeap {
			return candidates[i].EstimatedHeap > candidates[j].EstimatedHeap
		}
		return candidates[i].Class < candidates[j].Class
	})
	if len(candidates) > 10 {
		candidates = candidates[:10]
	}

	return &BudgetReport{
		EntryPoint:      entry,
		TotalHeap:       totalHeap,
		Limit:           limit,
		Breakdown:       breakdown,
		SplitCandidates: candidates,
	}
}

// buildBreakdownTree walks from class down its inline-class children,
// sorted by cumulative usage, guarding against cycles via visiting.
func buildBreakdownTree(class string, classUsage map[string]int, children map[string][]string, visiting map[string]bool) *BudgetNode {
	node := &BudgetNode{Class: class, OwnHeap: classUsage[class]}
	if visiting[class] {
		node.Cumulative = node.OwnHeap
		return node
	}
	visiting[class] = true
	defer delete(visiting, class)

	cum := node.OwnHeap
	for _, child := range children[class] {
		childNode := buildBreakdownTree(child, classUsage, children, visiting)
		node.Children = append(node.Children, childNode)
		cum += childNode.Cumulative
	}
	sort.SliceStable(node.Children, func(i, j int) bool {
		return node.Children[i].Cumulative > node.Children[j].Cumulative
	})
	node.Cumulative = cum
	return node
}

// attributeDeficit assigns the gap between total heap usage and the
// sum of every node's own usage to the root, per spec §4.6 step 5
// ("attribute the deficit between the sum of per-class usage and total
// to the root"). The deficit covers heap entries that belong to
// neither the entry point nor any reachable inline class: top-level
// consts merged at the entry-point scope, and shared-extern bookkeeping.
func attributeDeficit(root *BudgetNode, totalHeap int) {
	sum := sumOwnHeap(root)
	deficit := totalHeap - sum
	if deficit > 0 {
		root.OwnHeap += deficit
		root.Cumulative += deficit
	}
}

func sumOwnHeap(n *BudgetNode) int {
	sum := n.OwnHeap
	for _, c := range n.Children {
		sum += sumOwnHeap(c)
	}
	return sum
}

// CheckSoftWarning reports whether totalHeap crosses SoftWarningThreshold
// under extension. The threshold is independent of, and checked
// regardless of, the hard limit CheckBudget enforces: a short-mode
// program can cross 65,536 heap entries while still sitting under a
// caller-raised HeapBudget (spec §6, §9 Open Questions: "a soft
// runtime-warning threshold of 65,536 applies to the short mode",
// resolved to warn-only, short mode only).
func CheckSoftWarning(extension AssemblyExtension, totalHeap int) bool {
	return extension == ShortAssembly && totalHeap > SoftWarningThreshold
}

