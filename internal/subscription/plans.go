package subscription

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Currency is the Telegram Stars currency code.
const Currency = "XTR"

// Plan is a purchasable subscription period.
type Plan struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Label    string        `yaml:"label"`
	Stars    int           `yaml:"stars"`
	Duration time.Duration `yaml:"duration"`
}

// Plans is an ordered plan table.
type Plans []Plan

// DefaultPlans is the month/quarter/year table the bot ships with.
func DefaultPlans() Plans {
	return Plans{
		{ID: "month", Title: "Подписка на месяц", Label: "Месяц", Stars: 100, Duration: 30 * 24 * time.Hour},
		{ID: "quarter", Title: "Подписка на квартал", Label: "Квартал", Stars: 270, Duration: 90 * 24 * time.Hour},
		{ID: "year", Title: "Подписка на год", Label: "Год", Stars: 1000, Duration: 365 * 24 * time.Hour},
	}
}

// ByID returns the plan with the given id.
func (p Plans) ByID(id string) (Plan, bool) {
	for _, plan := range p {
		if plan.ID == id {
			return plan, true
		}
	}
	return Plan{}, false
}

// Validate checks the plan table.
func (p Plans) Validate() error {
	seen := make(map[string]struct{}, len(p))
	for i, plan := range p {
		if plan.ID == "" || strings.Contains(plan.ID, ":") {
			return fmt.Errorf("subscription: plans[%d]: invalid id %q", i, plan.ID)
		}
		if _, dup := seen[plan.ID]; dup {
			return fmt.Errorf("subscription: plans[%d]: duplicate id %q", i, plan.ID)
		}
		seen[plan.ID] = struct{}{}
		if plan.Stars <= 0 {
			return fmt.Errorf("subscription: plan %q: stars must be positive", plan.ID)
		}
		if plan.Duration <= 0 {
			return fmt.Errorf("subscription: plan %q: duration must be positive", plan.ID)
		}
	}
	return nil
}

// InvoicePayload encodes the invoice payload for a purchase of plan by
// ownerID, e.g. "month:42:1760000000".
func InvoicePayload(plan Plan, ownerID int64, at time.Time) string {
	return fmt.Sprintf("%s:%d:%d", plan.ID, ownerID, at.Unix())
}

// ParseInvoicePayload decodes a payload produced by InvoicePayload.
func ParseInvoicePayload(payload string) (planID string, ownerID int64, ok bool) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return "", 0, false
	}
	return parts[0], ownerID, true
}
