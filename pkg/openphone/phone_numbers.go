package openphone

import (
	"context"
	"net/url"
)

// PhoneNumbersService lists the workspace's phone numbers.
type PhoneNumbersService struct{ service }

// List returns a lazy iterator over phone numbers, optionally filtered by user.
func (s *PhoneNumbersService) List(userID string) *Iter[PhoneNumber] {
	v := url.Values{}
	setIf(v, "userId", userID)
	return newIter[PhoneNumber](s.core.List(pathPhoneNumbers, v))
}

// All drains List.
func (s *PhoneNumbersService) All(ctx context.Context, userID string) ([]*PhoneNumber, error) {
	return s.List(userID).Collect(ctx, 0)
}

// ConversationsService lists conversations.
type ConversationsService struct{ service }

// ListConversationsParams filters a conversation listing.
type ListConversationsParams struct {
	PhoneNumbers    []string
	UserID          string
	CreatedAfter    string
	CreatedBefore   string
	UpdatedAfter    string
	UpdatedBefore   string
	ExcludeInactive bool
	PageOptions
}

// List returns a lazy iterator over conversations.
func (s *ConversationsService) List(params ListConversationsParams) (*Iter[Conversation], error) {
	v := url.Values{}
	if err := params.PageOptions.apply(v, MaxPageSize); err != nil {
		return nil, err
	}
	if len(params.PhoneNumbers) > 0 {
		v["phoneNumbers"] = append([]string(nil), params.PhoneNumbers...)
	}
	setIf(v, "userId", params.UserID)
	setIf(v, "createdAfter", params.CreatedAfter)
	setIf(v, "createdBefore", params.CreatedBefore)
	setIf(v, "updatedAfter", params.UpdatedAfter)
	setIf(v, "updatedBefore", params.UpdatedBefore)
	if params.ExcludeInactive {
		v.Set("excludeInactive", "true")
	}
	return newIter[Conversation](s.core.List(pathConversations, v)), nil
}

// All drains every conversation.
func (s *ConversationsService) All(ctx context.Context) ([]*Conversation, error) {
	it, err := s.List(ListConversationsParams{})
	if err != nil {
		return nil, err
	}
	return it.Collect(ctx, 0)
}
