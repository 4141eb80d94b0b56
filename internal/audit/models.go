package audit

import "time"

// BillAnalysis 는 고지서 분석 1건의 결과를 저장하는 DB 모델이다.
// Parsed 가 false 면 추출 실패로 사용량 0 처리된 건이다.
type BillAnalysis struct {
	ID               int64     `gorm:"column:id;primaryKey" json:"id"`
	UserID           string    `gorm:"column:user_id" json:"user_id"`
	Filename         string    `gorm:"column:filename" json:"filename"`
	MIMEType         string    `gorm:"column:mime_type" json:"mime_type"`
	Mode             string    `gorm:"column:mode" json:"mode"`
	UsageKWH         float64   `gorm:"column:usage_kwh" json:"usage_kwh"`
	OriginalCredits  float64   `gorm:"column:original_credits" json:"original_credits"`
	TargetCredits    float64   `gorm:"column:target_credits" json:"target_credits"`
	ReductionPercent float64   `gorm:"column:reduction_percent" json:"reduction_percent"`
	Parsed           bool      `gorm:"column:parsed" json:"parsed"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 은 GORM에서 사용할 테이블명을 반환한다.
func (BillAnalysis) TableName() string {
	return "bill_analyses"
}
