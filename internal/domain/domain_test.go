package domain

import (
	"testing"
	"time"
)

func TestStatusValidTransition(t *testing.T) {
	tests := []struct {
		from  RecommendationStatus
		to    RecommendationStatus
		valid bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusOrdered, false},
		{StatusApproved, StatusOrdered, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusOrdered, StatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.ValidTransition(tt.to); got != tt.valid {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestDeliveredOnTime(t *testing.T) {
	expected := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		tx     Transaction
		onTime bool
	}{
		{"on the day", Transaction{ExpectedDelivery: expected, ActualDelivery: expected}, true},
		{"early", Transaction{ExpectedDelivery: expected, ActualDelivery: expected.AddDate(0, 0, -2)}, true},
		{"late", Transaction{ExpectedDelivery: expected, ActualDelivery: expected.AddDate(0, 0, 3)}, false},
		{"untracked", Transaction{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.DeliveredOnTime(); got != tt.onTime {
				t.Errorf("DeliveredOnTime() = %v, want %v", got, tt.onTime)
			}
		})
	}
}

func TestTransactionLeadTimeDays(t *testing.T) {
	order := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	tx := Transaction{Date: order, ActualDelivery: order.AddDate(0, 0, 14)}
	if got := tx.LeadTimeDays(); got != 14 {
		t.Errorf("LeadTimeDays() = %f, want 14", got)
	}

	untracked := Transaction{Date: order}
	if got := untracked.LeadTimeDays(); got != 0 {
		t.Errorf("untracked delivery should report zero lead time, got %f", got)
	}
}

func TestPatternIsEmpty(t *testing.T) {
	empty := DemandPattern{Kind: PatternEmpty}
	if !empty.IsEmpty() {
		t.Error("empty kind should report empty")
	}

	populated := DemandPattern{Kind: PatternPopulated}
	if populated.IsEmpty() {
		t.Error("populated kind should not report empty")
	}
}
