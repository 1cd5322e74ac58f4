// Package lms publishes class results to an external LMS gradebook through
// the LTI Assignment and Grade Services (AGS) line item and score endpoints.
package lms

import (
	"context"
	"time"
)

type LineItem struct {
	ID, Label, ResourceID string
	ScoreMaximum          float64
}

type CreateLineItemReq struct {
	Label        string
	ScoreMaximum float64
	ResourceID   string
}

type Score struct {
	UserID, ActivityProgress, GradingProgress string
	ScoreGiven, ScoreMaximum                  float64
	Timestamp                                 time.Time
}

type AGSClient interface {
	ListLineItems(ctx context.Context, lineItemsURL string, q map[string]string) ([]LineItem, error)
	CreateLineItem(ctx context.Context, lineItemsURL string, req CreateLineItemReq) (LineItem, error)
	PostScore(ctx context.Context, lineItemURL string, s Score) error
}
