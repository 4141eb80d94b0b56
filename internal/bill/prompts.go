package bill

import (
	"fmt"
	"strings"
)

const (
	// extractPrompt 는 고지서에서 총 사용량(kWh)만 숫자로 받아내는 프롬프트다.
	extractPrompt = "Read this electricity bill and return only the total usage " +
		"in kilowatt-hours (kWh) as a number."

	// ChatSeedMessage 는 예산 계산 없이 고지서 문맥만 실은 세션의 시드 메시지다.
	ChatSeedMessage = "You are an assistant with full context of the attached electricity bill."
)

// recommendPrompt 는 사용량 기반 절감 제안 프롬프트를 만듭니다.
func recommendPrompt(usageKWH float64) string {
	return fmt.Sprintf(
		"Total usage is about %.1f kWh. "+
			"Suggest 5–7 concrete, measurable steps to cut consumption, "+
			"including estimated savings in kWh or ₹/month.",
		usageKWH,
	)
}

// BudgetSeedMessage 는 예산 요약과 절감 제안을 실은 세션 시드 메시지를 만듭니다.
// 이후 채팅 턴은 이 문맥 위에서 이어진다.
func BudgetSeedMessage(usageKWH float64, budget Budget, recommendations string) string {
	return fmt.Sprintf(
		"The household used %.1f kWh (~%.1f kgCO₂). "+
			"Target after %v%% reduction: %.1f kgCO₂.\n\n"+
			"Recommendations:\n%s\n\n"+
			"You can now chat with the user about these results.",
		usageKWH,
		budget.OriginalCredits,
		formatPercent(budget.ReductionPercent),
		budget.TargetCredits,
		strings.TrimSpace(recommendations),
	)
}

// formatPercent 는 정수 절감률을 소수점 없이 표기합니다.
func formatPercent(value float64) string {
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%g", value)
}
