package reorder

import (
	"fmt"

	"github.com/partsignal/replenish-core/internal/domain"
)

// Validate inspects a calculation and returns structured issues instead of
// failing. Error severity blocks acceptance; warning and info are advisory.
func (c *Calculator) Validate(calc domain.ReorderPointCalculation, part domain.Part) []domain.ValidationIssue {
	var issues []domain.ValidationIssue

	if calc.ReorderPoint < calc.SafetyStock {
		issues = append(issues, domain.ValidationIssue{
			Severity: domain.SeverityError,
			Field:    "reorder_point",
			Message: fmt.Sprintf("reorder point %.2f is below safety stock %.2f",
				calc.ReorderPoint, calc.SafetyStock),
		})
	}

	if calc.AverageDemand > 0 && calc.ReorderPoint > c.cfg.ReorderPointDemandMultiple*calc.AverageDemand {
		issues = append(issues, domain.ValidationIssue{
			Severity: domain.SeverityWarning,
			Field:    "reorder_point",
			Message: fmt.Sprintf("reorder point %.2f exceeds %.0f months of average demand",
				calc.ReorderPoint, c.cfg.ReorderPointDemandMultiple),
		})
	}

	if calc.Confidence < c.cfg.LowConfidenceWarning {
		issues = append(issues, domain.ValidationIssue{
			Severity: domain.SeverityWarning,
			Field:    "confidence",
			Message:  fmt.Sprintf("calculation confidence %.2f is low; review inputs", calc.Confidence),
		})
	}

	if calc.TargetServiceLevel > 0.99 && part.Criticality == domain.CriticalityLow {
		issues = append(issues, domain.ValidationIssue{
			Severity: domain.SeverityWarning,
			Field:    "target_service_level",
			Message:  "service level above 0.99 on a low-criticality part inflates carrying cost",
		})
	}

	return issues
}

// HasBlockingIssue reports whether any issue carries error severity.
func HasBlockingIssue(issues []domain.ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}
