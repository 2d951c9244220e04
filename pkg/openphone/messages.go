package openphone

import (
	"context"
	"net/http"
	"net/url"
)

// MessagesService covers the messages endpoints.
type MessagesService struct{ service }

// ListMessagesParams filters a message listing. PhoneNumberID and at least
// one participant are required by the API.
type ListMessagesParams struct {
	PhoneNumberID string
	Participants  []string
	UserID        string
	CreatedAfter  string
	CreatedBefore string
	PageOptions
}

func (p ListMessagesParams) values() (url.Values, error) {
	if err := requireField("phoneNumberId", p.PhoneNumberID); err != nil {
		return nil, err
	}
	if len(p.Participants) == 0 {
		return nil, requireField("participants", "")
	}
	v := url.Values{}
	if err := p.PageOptions.apply(v, MaxPageSize); err != nil {
		return nil, err
	}
	v.Set("phoneNumberId", p.PhoneNumberID)
	v["participants"] = append([]string(nil), p.Participants...)
	setIf(v, "userId", p.UserID)
	setIf(v, "createdAfter", p.CreatedAfter)
	setIf(v, "createdBefore", p.CreatedBefore)
	return v, nil
}

// SendMessageParams is the body of a send request.
type SendMessageParams struct {
	Content string   `json:"content"`
	From    string   `json:"from"`
	To      []string `json:"to"`
	UserID  string   `json:"userId,omitempty"`
}

// List returns a lazy iterator over messages in a conversation.
func (s *MessagesService) List(params ListMessagesParams) (*Iter[Message], error) {
	v, err := params.values()
	if err != nil {
		return nil, err
	}
	return newIter[Message](s.core.List(pathMessages, v)), nil
}

// Send sends a text message.
func (s *MessagesService) Send(ctx context.Context, params SendMessageParams) (*Message, error) {
	if err := requireField("content", params.Content); err != nil {
		return nil, err
	}
	if err := requireField("from", params.From); err != nil {
		return nil, err
	}
	if len(params.To) == 0 {
		return nil, requireField("to", "")
	}
	var msg Message
	if err := s.send(ctx, http.MethodPost, pathMessages, params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Get fetches a single message.
func (s *MessagesService) Get(ctx context.Context, id string) (*Message, error) {
	path, err := resourcePath(pathMessages, id)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := s.get(ctx, path, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
