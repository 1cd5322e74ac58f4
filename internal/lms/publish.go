package lms

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

// ErrNoLineItemsURL is returned when the class has no AGS endpoint to publish to.
var ErrNoLineItemsURL = errors.New("missing lineitems_url")

const LineItemLabel = "Class results (%)"

type Publisher struct {
	AGS AGSClient
	Now func() time.Time
}

func NewPublisher(ags AGSClient, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	return &Publisher{AGS: ags, Now: now}
}

type Failure struct {
	EnrollmentNo string `json:"enrollment_no"`
	Error        string `json:"error"`
}

type Result struct {
	LineItemURL string    `json:"line_item_url"`
	Posted      int       `json:"posted"`
	Failed      []Failure `json:"failed,omitempty"`
}

// EnsureLineItem finds the line item for classID or creates it. Scores are
// published as percentages, so the maximum is always 100.
func (p *Publisher) EnsureLineItem(ctx context.Context, lineItemsURL, classID string) (LineItem, error) {
	if lineItemsURL == "" {
		return LineItem{}, ErrNoLineItemsURL
	}
	items, err := p.AGS.ListLineItems(ctx, lineItemsURL, map[string]string{"resource_id": classID})
	if err == nil {
		for _, it := range items {
			if it.ResourceID == classID {
				return it, nil
			}
		}
	} else {
		log.Printf("lms: list line items for %s: %v", classID, err)
	}
	created, err := p.AGS.CreateLineItem(ctx, lineItemsURL, CreateLineItemReq{
		Label: LineItemLabel, ScoreMaximum: 100, ResourceID: classID,
	})
	if err != nil {
		return LineItem{}, fmt.Errorf("create line item: %w", err)
	}
	return created, nil
}

// Publish posts every student's percentage, keyed by enrollment number.
// A failed score does not stop the rest; failures are listed in the result.
func (p *Publisher) Publish(ctx context.Context, lineItemsURL, classID string, data gradebook.AnalysisData) (Result, error) {
	li, err := p.EnsureLineItem(ctx, lineItemsURL, classID)
	if err != nil {
		return Result{}, err
	}
	out := Result{LineItemURL: li.ID}
	now := p.Now()
	for _, r := range data.Results {
		user := strings.TrimSpace(r.Student.EnrollmentNo)
		if user == "" {
			out.Failed = append(out.Failed, Failure{EnrollmentNo: r.Student.EnrollmentNo, Error: "empty enrollment number"})
			continue
		}
		err := p.AGS.PostScore(ctx, li.ID, Score{
			UserID:           user,
			ScoreGiven:       r.Percentage,
			ScoreMaximum:     100,
			ActivityProgress: "Completed",
			GradingProgress:  "FullyGraded",
			Timestamp:        now,
		})
		if err != nil {
			out.Failed = append(out.Failed, Failure{EnrollmentNo: user, Error: err.Error()})
			continue
		}
		out.Posted++
	}
	return out, nil
}
