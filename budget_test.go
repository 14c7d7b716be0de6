// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestCheckBudgetReturnsNilUnderLimit(t *testing.T) {
	report := CheckBudget("Main", 10, DefaultHeapBudgetShort, nil, nil, nil, func(string) int { return 0 })
	if report != nil {
		t.Fatalf("CheckBudget() = %+v, want nil when under limit", report)
	}
}

func TestCheckBudgetBuildsBreakdownAndAttributesDeficit(t *testing.T) {
	classUsage := map[string]int{
		"Main": 10,
		"Helper": 5,
	}
	children := map[string][]string{
		"Main": {"Helper"},
	}
	reachable := []string{"Helper"}

	report := CheckBudget("Main", 30, 20, classUsage, children, reachable, func(class string) int {
		return classUsage[class]
	})
	if report == nil {
		t.Fatal("CheckBudget() = nil, want a report when over limit")
	}
	if report.TotalHeap != 30 || report.Limit != 20 {
		t.Fatalf("report totals = %d/%d, want 30/20", report.TotalHeap, report.Limit)
	}
	if report.Breakdown.Class != "Main" {
		t.Fatalf("Breakdown.Class = %s, want Main", report.Breakdown.Class)
	}
	if len(report.Breakdown.Children) != 1 || report.Breakdown.Children[0].Class != "Helper" {
		t.Fatalf("Breakdown.Children = %+v, want [Helper]", report.Breakdown.Children)
	}
	// sum of own usage before attribution is 10+5=15; the 30-15=15
	// deficit (top-level consts, shared bookkeeping) lands on the root.
	if report.Breakdown.OwnHeap != 25 {
		t.Fatalf("root OwnHeap = %d, want 25 (10 + 15 deficit)", report.Breakdown.OwnHeap)
	}
	if report.Breakdown.Cumulative != 30 {
		t.Fatalf("root Cumulative = %d, want 30", report.Breakdown.Cumulative)
	}
	if len(report.SplitCandidates) != 1 || report.SplitCandidates[0].Class != "Helper" {
		t.Fatalf("SplitCandidates = %+v, want [{Helper 5}]", report.SplitCandidates)
	}
}

func TestCheckBudgetTruncatesSplitCandidatesToTen(t *testing.T) {
	classUsage := map[string]int{"Main": 100}
	children := map[string][]string{}
	reachable := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		name := string(rune('A' + i))
		reachable = append(reachable, name)
		classUsage[name] = i
	}

	report := CheckBudget("Main", 1000, 10, classUsage, children, reachable, func(class string) int {
		return classUsage[class]
	})
	if report == nil {
		t.Fatal("CheckBudget() = nil, want a report")
	}
	if len(report.SplitCandidates) != 10 {
		t.Fatalf("len(SplitCandidates) = %d, want 10", len(report.SplitCandidates))
	}
	// highest EstimatedHeap first.
	if report.SplitCandidates[0].Class != "O" || report.SplitCandidates[0].EstimatedHeap != 14 {
		t.Fatalf("SplitCandidates[0] = %+v, want {O 14}", report.SplitCandidates[0])
	}
}

func TestBuildBreakdownTreeGuardsAgainstCycles(t *testing.T) {
	classUsage := map[string]int{"A": 1, "B": 1}
	children := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	// Must terminate rather than recurse forever.
	node := buildBreakdownTree("A", classUsage, children, map[string]bool{})
	if node.Class != "A" {
		t.Fatalf("node.Class = %s, want A", node.Class)
	}
	if len(node.Children) != 1 || node.Children[0].Class != "B" {
		t.Fatalf("node.Children = %+v, want [B]", node.Children)
	}
	// B's self-reference back to A is cut off: the cycle-back node for A
	// is still recorded as B's child, but with no children of its own.
	bChildren := node.Children[0].Children
	if len(bChildren) != 1 || bChildren[0].Class != "A" || len(bChildren[0].Children) != 0 {
		t.Fatalf("B's children = %+v, want one childless A node (cycle cut)", bChildren)
	}
}

func TestCheckSoftWarningOnlyAppliesToShortMode(t *testing.T) {
	if CheckSoftWarning(ShortAssembly, SoftWarningThreshold) {
		t.Fatal("CheckSoftWarning at exactly the threshold should not warn (strictly greater-than)")
	}
	if !CheckSoftWarning(ShortAssembly, SoftWarningThreshold+1) {
		t.Fatal("CheckSoftWarning should warn once short-mode heap usage exceeds the threshold")
	}
	if CheckSoftWarning(ExtendedAssembly, SoftWarningThreshold+1) {
		t.Fatal("CheckSoftWarning should never fire in extended mode, regardless of heap usage")
	}
}
