package openphone

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/Sternrassler/openphone-client/pkg/client"
)

// Webhook event names.
const (
	EventMessageReceived         = "message.received"
	EventMessageDelivered        = "message.delivered"
	EventCallCompleted           = "call.completed"
	EventCallRinging             = "call.ringing"
	EventCallRecordingCompleted  = "call.recording.completed"
	EventCallSummaryCompleted    = "call.summary.completed"
	EventCallTranscriptCompleted = "call.transcript.completed"
)

// Webhook statuses.
const (
	WebhookEnabled  = "enabled"
	WebhookDisabled = "disabled"
)

var (
	messageEvents = []string{EventMessageReceived, EventMessageDelivered}
	callEvents    = []string{EventCallCompleted, EventCallRinging, EventCallRecordingCompleted}
)

// Creation endpoints, one per event family.
const (
	pathMessageWebhooks    = pathWebhooks + "/messages"
	pathCallWebhooks       = pathWebhooks + "/calls"
	pathSummaryWebhooks    = pathWebhooks + "/call-summaries"
	pathTranscriptWebhooks = pathWebhooks + "/call-transcripts"
)

// WebhookInput is the body of a create or update request. Status defaults
// to enabled on create.
type WebhookInput struct {
	URL         string   `json:"url"`
	Events      []string `json:"events,omitempty"`
	ResourceIDs []string `json:"resourceIds,omitempty"`
	Label       string   `json:"label,omitempty"`
	Status      string   `json:"status,omitempty"`
	UserID      string   `json:"userId,omitempty"`
}

// WebhooksService covers the webhooks endpoints.
type WebhooksService struct{ service }

// List returns a lazy iterator over webhooks, optionally filtered by user.
func (s *WebhooksService) List(userID string) *Iter[Webhook] {
	v := url.Values{}
	setIf(v, "userId", userID)
	return newIter[Webhook](s.core.List(pathWebhooks, v))
}

// All drains List.
func (s *WebhooksService) All(ctx context.Context, userID string) ([]*Webhook, error) {
	return s.List(userID).Collect(ctx, 0)
}

// Get fetches a single webhook.
func (s *WebhooksService) Get(ctx context.Context, id string) (*Webhook, error) {
	path, err := resourcePath(pathWebhooks, id)
	if err != nil {
		return nil, err
	}
	var wh Webhook
	if err := s.get(ctx, path, &wh); err != nil {
		return nil, err
	}
	return &wh, nil
}

// Update replaces a webhook's configuration.
func (s *WebhooksService) Update(ctx context.Context, id string, input WebhookInput) (*Webhook, error) {
	path, err := resourcePath(pathWebhooks, id)
	if err != nil {
		return nil, err
	}
	var wh Webhook
	if err := s.send(ctx, http.MethodPut, path, input, &wh); err != nil {
		return nil, err
	}
	return &wh, nil
}

// Delete removes a webhook.
func (s *WebhooksService) Delete(ctx context.Context, id string) error {
	path, err := resourcePath(pathWebhooks, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, path)
}

// Create routes input to the creation endpoint matching its events:
// message events, call events, exactly the summary event, or exactly the
// transcript event. Empty, mixed, or unknown event sets are rejected before
// any request is sent.
func (s *WebhooksService) Create(ctx context.Context, input WebhookInput) (*Webhook, error) {
	path, err := webhookRoute(input.Events)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, path, input)
}

// CreateMessageWebhook subscribes url to message events.
func (s *WebhooksService) CreateMessageWebhook(ctx context.Context, input WebhookInput) (*Webhook, error) {
	if err := checkEvents(input.Events, messageEvents, "message"); err != nil {
		return nil, err
	}
	return s.create(ctx, pathMessageWebhooks, input)
}

// CreateCallWebhook subscribes url to call events.
func (s *WebhooksService) CreateCallWebhook(ctx context.Context, input WebhookInput) (*Webhook, error) {
	if err := checkEvents(input.Events, callEvents, "call"); err != nil {
		return nil, err
	}
	return s.create(ctx, pathCallWebhooks, input)
}

// CreateCallSummaryWebhook subscribes url to completed call summaries.
// Any events on input are replaced.
func (s *WebhooksService) CreateCallSummaryWebhook(ctx context.Context, input WebhookInput) (*Webhook, error) {
	input.Events = []string{EventCallSummaryCompleted}
	return s.create(ctx, pathSummaryWebhooks, input)
}

// CreateCallTranscriptWebhook subscribes url to completed call transcripts.
// Any events on input are replaced.
func (s *WebhooksService) CreateCallTranscriptWebhook(ctx context.Context, input WebhookInput) (*Webhook, error) {
	input.Events = []string{EventCallTranscriptCompleted}
	return s.create(ctx, pathTranscriptWebhooks, input)
}

func (s *WebhooksService) create(ctx context.Context, path string, input WebhookInput) (*Webhook, error) {
	if err := requireField("url", input.URL); err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = WebhookEnabled
	}
	var wh Webhook
	if err := s.send(ctx, http.MethodPost, path, input, &wh); err != nil {
		return nil, err
	}
	return &wh, nil
}

func webhookRoute(events []string) (string, error) {
	if len(events) == 0 {
		return "", client.NewValidationError("webhook events are required")
	}

	switch {
	case subsetOf(events, messageEvents):
		return pathMessageWebhooks, nil
	case subsetOf(events, callEvents):
		return pathCallWebhooks, nil
	case subsetOf(events, []string{EventCallSummaryCompleted}):
		return pathSummaryWebhooks, nil
	case subsetOf(events, []string{EventCallTranscriptCompleted}):
		return pathTranscriptWebhooks, nil
	}

	var unknown []string
	for _, e := range events {
		if !slices.Contains(messageEvents, e) && !slices.Contains(callEvents, e) &&
			e != EventCallSummaryCompleted && e != EventCallTranscriptCompleted {
			unknown = append(unknown, e)
		}
	}
	if len(unknown) > 0 {
		return "", client.NewValidationError("unknown webhook events: %s", strings.Join(unknown, ", "))
	}
	return "", client.NewValidationError("webhook events must belong to one family (messages, calls, call summaries, or call transcripts): %s",
		strings.Join(events, ", "))
}

func checkEvents(events, allowed []string, family string) error {
	if len(events) == 0 {
		return client.NewValidationError("%s webhook events are required", family)
	}
	for _, e := range events {
		if !slices.Contains(allowed, e) {
			return client.NewValidationError("invalid %s event %q (valid: %s)", family, e, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func subsetOf(events, family []string) bool {
	for _, e := range events {
		if !slices.Contains(family, e) {
			return false
		}
	}
	return true
}
