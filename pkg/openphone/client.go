// Package openphone provides typed resource services over the core client.
//
// Every service is created together with the Client and shares its
// credential, transport, cache, and rate-limit tracker:
//
//	op, err := openphone.New(os.Getenv("OPENPHONE_API_KEY"))
//	if err != nil {
//	    return err
//	}
//	numbers, err := op.PhoneNumbers.All(ctx, "")
package openphone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/openphone-client/pkg/client"
)

// Endpoint paths relative to the API base URL.
const (
	pathMessages            = "messages"
	pathContacts            = "contacts"
	pathContactCustomFields = "contact-custom-fields"
	pathPhoneNumbers        = "phone-numbers"
	pathCalls               = "calls"
	pathCallRecordings      = "call-recordings"
	pathCallSummaries       = "call-summaries"
	pathCallTranscripts     = "call-transcripts"
	pathWebhooks            = "webhooks"
	pathConversations       = "conversations"
)

// Client bundles one instance of every resource service.
type Client struct {
	core *client.Client

	Messages            *MessagesService
	Contacts            *ContactsService
	ContactCustomFields *ContactCustomFieldsService
	PhoneNumbers        *PhoneNumbersService
	Calls               *CallsService
	CallRecordings      *CallRecordingsService
	CallSummaries       *CallSummariesService
	CallTranscripts     *CallTranscriptsService
	Webhooks            *WebhooksService
	Conversations       *ConversationsService
}

// New creates a Client with the default configuration.
func New(apiKey string) (*Client, error) {
	return NewClient(client.DefaultConfig(apiKey))
}

// NewClient creates the core client from cfg and builds every service.
func NewClient(cfg client.Config) (*Client, error) {
	core, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(core), nil
}

// Wrap builds the resource services around an existing core client.
func Wrap(core *client.Client) *Client {
	s := service{core: core}
	return &Client{
		core:                core,
		Messages:            &MessagesService{s},
		Contacts:            &ContactsService{s},
		ContactCustomFields: &ContactCustomFieldsService{s},
		PhoneNumbers:        &PhoneNumbersService{s},
		Calls:               &CallsService{s},
		CallRecordings:      &CallRecordingsService{s},
		CallSummaries:       &CallSummariesService{s},
		CallTranscripts:     &CallTranscriptsService{s},
		Webhooks:            &WebhooksService{s},
		Conversations:       &ConversationsService{s},
	}
}

// Core returns the underlying client.
func (c *Client) Core() *client.Client {
	return c.core
}

// Raw sends an arbitrary request and returns the unclassified response.
func (c *Client) Raw(ctx context.Context, method, path string, query url.Values, body any) (*client.Response, error) {
	return c.core.Raw(ctx, method, path, query, body)
}

// service is embedded by every resource service.
type service struct {
	core *client.Client
}

func (s service) get(ctx context.Context, path string, out any) error {
	body, err := s.core.Get(ctx, path, nil)
	if err != nil {
		return err
	}
	return decodeData(body, out)
}

func (s service) send(ctx context.Context, method, path string, payload, out any) error {
	body, err := s.core.Do(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeData(body, out)
}

func (s service) delete(ctx context.Context, path string) error {
	return s.send(ctx, http.MethodDelete, path, nil, nil)
}

// decodeData projects a response body onto out, unwrapping a "data" object
// when the body has one.
func decodeData(body map[string]any, out any) error {
	var src any = body
	if data, ok := body["data"].(map[string]any); ok {
		src = data
	}
	return decodeInto(src, out)
}

func decodeInto(src, out any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %T: %w", out, err)
	}
	return nil
}

func resourcePath(collection, id string) (string, error) {
	if id == "" {
		return "", client.NewValidationError("%s id is required", collection)
	}
	return collection + "/" + url.PathEscape(id), nil
}
