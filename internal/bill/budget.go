package bill

import "math"

// EmissionFactor 는 전력 1 kWh 당 탄소 크레딧 환산 계수다.
const EmissionFactor = 0.92

// Budget 은 탄소 크레딧 예산 계산 결과다.
type Budget struct {
	OriginalCredits  float64 `json:"original_credits"`
	TargetCredits    float64 `json:"target_credits"`
	ReductionPercent float64 `json:"reduction_percent"`
}

// ComputeBudget 은 사용량(kWh)과 절감률(%)로 크레딧 예산을 계산합니다.
// 절감률은 호출자가 준 값을 그대로 쓴다. 범위 제한은 하지 않는다.
func ComputeBudget(usageKWH float64, reductionPercent float64) Budget {
	original := usageKWH * EmissionFactor
	target := original * (1 - reductionPercent/100)
	return Budget{
		OriginalCredits:  Round2(original),
		TargetCredits:    Round2(target),
		ReductionPercent: reductionPercent,
	}
}

// Round2 는 소수점 둘째 자리로 반올림합니다.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
