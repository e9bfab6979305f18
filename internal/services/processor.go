package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StripeProcessor talks to the Stripe payment-intents API. Errors come back
// as *ProcessorError and are never retried here; the ledger is only touched
// by the caller after a successful response.
type StripeProcessor struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewStripeProcessor constructs a processor client with a bounded timeout.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	return &StripeProcessor{
		secretKey: secretKey,
		baseURL:   "https://api.stripe.com/v1",
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type stripeIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Metadata     struct {
		OrderID string `json:"order_id"`
	} `json:"metadata"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent creates a payment intent bound to the order via metadata.
func (p *StripeProcessor) CreateIntent(ctx context.Context, in IntentRequest) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(in.Amount, 10))
	form.Set("currency", strings.ToLower(in.Currency))
	form.Set("metadata[order_id]", in.OrderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProcessorError{Op: "create intent", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProcessorError{Op: "create intent", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var parsed stripeIntentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProcessorError{Op: "create intent", Status: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "request rejected"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ProcessorError{Op: "create intent", Status: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}

	if parsed.ID == "" || parsed.ClientSecret == "" {
		return nil, &ProcessorError{Op: "create intent", Status: resp.StatusCode, Err: fmt.Errorf("incomplete intent in response")}
	}

	return &Intent{ID: parsed.ID, ClientSecret: parsed.ClientSecret}, nil
}

// RetrieveIntent fetches the current state of an intent so a client-reported
// confirmation can be checked against the processor's own record.
func (p *StripeProcessor) RetrieveIntent(ctx context.Context, id string) (*IntentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/payment_intents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, &ProcessorError{Op: "retrieve intent", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProcessorError{Op: "retrieve intent", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var parsed stripeIntentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProcessorError{Op: "retrieve intent", Status: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "request rejected"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ProcessorError{Op: "retrieve intent", Status: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}

	if parsed.ID == "" {
		return nil, &ProcessorError{Op: "retrieve intent", Status: resp.StatusCode, Err: fmt.Errorf("incomplete intent in response")}
	}

	return &IntentStatus{ID: parsed.ID, Status: parsed.Status, OrderID: parsed.Metadata.OrderID}, nil
}
