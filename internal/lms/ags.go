package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	ScopeLineItem = "https://purl.imsglobal.org/spec/lti-ags/scope/lineitem"
	ScopeScore    = "https://purl.imsglobal.org/spec/lti-ags/scope/score"
)

// Client talks to a platform's AGS endpoints with a client-credentials token.
type Client struct {
	http *http.Client
}

type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

func NewClient(cfg Config) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{ScopeLineItem, ScopeScore},
	}
	h := cc.Client(context.Background())
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{http: h}
}

type lineItemJSON struct {
	ID           string  `json:"id,omitempty"`
	Label        string  `json:"label"`
	ScoreMaximum float64 `json:"scoreMaximum"`
	ResourceID   string  `json:"resourceId,omitempty"`
}

func (it lineItemJSON) lineItem() LineItem {
	return LineItem{ID: it.ID, Label: it.Label, ScoreMaximum: it.ScoreMaximum, ResourceID: it.ResourceID}
}

func (c *Client) ListLineItems(ctx context.Context, lineItemsURL string, q map[string]string) ([]LineItem, error) {
	u, err := url.Parse(lineItemsURL)
	if err != nil {
		return nil, fmt.Errorf("line items url: %w", err)
	}
	p := u.Query()
	for k, v := range q {
		p.Set(k, v)
	}
	u.RawQuery = p.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.ims.lis.v2.lineitemcontainer+json")
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("list line items: %s", res.Status)
	}
	var items []lineItemJSON
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		return nil, err
	}
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.lineItem())
	}
	return out, nil
}

func (c *Client) CreateLineItem(ctx context.Context, lineItemsURL string, req CreateLineItemReq) (LineItem, error) {
	body, _ := json.Marshal(lineItemJSON{Label: req.Label, ScoreMaximum: req.ScoreMaximum, ResourceID: req.ResourceID})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, lineItemsURL, bytes.NewReader(body))
	if err != nil {
		return LineItem{}, err
	}
	httpReq.Header.Set("Content-Type", "application/vnd.ims.lis.v2.lineitem+json")
	httpReq.Header.Set("Accept", "application/vnd.ims.lis.v2.lineitem+json")
	res, err := c.http.Do(httpReq)
	if err != nil {
		return LineItem{}, err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return LineItem{}, fmt.Errorf("create line item: %s", res.Status)
	}
	var it lineItemJSON
	if err := json.NewDecoder(res.Body).Decode(&it); err != nil {
		return LineItem{}, err
	}
	return it.lineItem(), nil
}

// PostScore posts to {lineItemURL}/scores, keeping any query string.
func (c *Client) PostScore(ctx context.Context, lineItemURL string, s Score) error {
	body, _ := json.Marshal(map[string]any{
		"userId": s.UserID, "scoreGiven": s.ScoreGiven, "scoreMaximum": s.ScoreMaximum,
		"activityProgress": s.ActivityProgress, "gradingProgress": s.GradingProgress,
		"timestamp": s.Timestamp.Format(time.RFC3339),
	})
	u, err := url.Parse(lineItemURL)
	if err != nil {
		return fmt.Errorf("line item url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/scores"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/vnd.ims.lis.v1.score+json")
	res, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("post score: %s", res.Status)
	}
	return nil
}
