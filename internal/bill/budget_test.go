package bill

import (
	"strings"
	"testing"
)

func TestComputeBudget(t *testing.T) {
	budget := ComputeBudget(300, 20)
	if budget.OriginalCredits != 276.0 {
		t.Fatalf("original credits = %v", budget.OriginalCredits)
	}
	if budget.TargetCredits != 220.8 {
		t.Fatalf("target credits = %v", budget.TargetCredits)
	}
	if budget.ReductionPercent != 20 {
		t.Fatalf("reduction percent = %v", budget.ReductionPercent)
	}
}

func TestComputeBudgetZeroUsage(t *testing.T) {
	budget := ComputeBudget(0, 50)
	if budget.OriginalCredits != 0 || budget.TargetCredits != 0 {
		t.Fatalf("zero usage budget = %+v", budget)
	}
}

func TestComputeBudgetUncheckedPercent(t *testing.T) {
	// 절감률은 범위 제한 없이 그대로 반영된다
	budget := ComputeBudget(100, 150)
	if budget.OriginalCredits != 92.0 {
		t.Fatalf("original credits = %v", budget.OriginalCredits)
	}
	if budget.TargetCredits != -46.0 {
		t.Fatalf("over-100%% reduction should go negative, got %v", budget.TargetCredits)
	}

	budget = ComputeBudget(100, -10)
	if budget.TargetCredits != 101.2 {
		t.Fatalf("negative reduction should raise target, got %v", budget.TargetCredits)
	}
}

func TestRound2(t *testing.T) {
	if Round2(1.005) != 1.0 && Round2(1.005) != 1.01 {
		// 부동소수점 표현에 따라 어느 쪽이든 일관된 값이어야 한다
		t.Fatalf("Round2(1.005) = %v", Round2(1.005))
	}
	if Round2(276.0001) != 276.0 {
		t.Fatalf("Round2(276.0001) = %v", Round2(276.0001))
	}
	if Round2(220.805) != 220.8 && Round2(220.805) != 220.81 {
		t.Fatalf("Round2(220.805) = %v", Round2(220.805))
	}
}

func TestBudgetSeedMessage(t *testing.T) {
	budget := ComputeBudget(300, 20)
	seed := BudgetSeedMessage(300, budget, "1. Switch to LED bulbs\n")

	for _, want := range []string{
		"The household used 300.0 kWh",
		"276.0 kgCO₂",
		"Target after 20% reduction: 220.8 kgCO₂",
		"Recommendations:\n1. Switch to LED bulbs",
		"You can now chat with the user about these results.",
	} {
		if !strings.Contains(seed, want) {
			t.Fatalf("seed missing %q:\n%s", want, seed)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(20); got != "20" {
		t.Fatalf("formatPercent(20) = %q", got)
	}
	if got := formatPercent(12.5); got != "12.5" {
		t.Fatalf("formatPercent(12.5) = %q", got)
	}
	if got := formatPercent(0); got != "0" {
		t.Fatalf("formatPercent(0) = %q", got)
	}
}
