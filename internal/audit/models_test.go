package audit

import (
	"context"
	"testing"
)

func TestTableName(t *testing.T) {
	if got := (BillAnalysis{}).TableName(); got != "bill_analyses" {
		t.Fatalf("table name = %q", got)
	}
}

func TestSaveAnalysisNil(t *testing.T) {
	r := NewRepository(nil, nil)
	if err := r.SaveAnalysis(context.Background(), nil); err == nil {
		t.Fatal("nil analysis should be rejected")
	}
}

func TestGetDBWithoutConfig(t *testing.T) {
	r := NewRepository(nil, nil)
	if _, err := r.ListAnalyses(context.Background(), "u1", 10); err == nil {
		t.Fatal("missing config should fail")
	}
}
