package openphone

import (
	"context"
	"net/http"
	"net/url"
)

// ContactsService covers the contacts endpoints.
type ContactsService struct{ service }

// ListContactsParams filters a contact listing. MaxResults is capped at 50.
type ListContactsParams struct {
	ExternalIDs []string
	Sources     []string
	PageOptions
}

// ContactInput is the body of a create or update request.
type ContactInput struct {
	DefaultFields   ContactDefaultFields      `json:"defaultFields"`
	CustomFields    []ContactCustomFieldValue `json:"customFields,omitempty"`
	CreatedByUserID string                    `json:"createdByUserId,omitempty"`
	Source          string                    `json:"source,omitempty"`
	SourceURL       string                    `json:"sourceUrl,omitempty"`
	ExternalID      string                    `json:"externalId,omitempty"`
}

// List returns a lazy iterator over contacts.
func (s *ContactsService) List(params ListContactsParams) (*Iter[Contact], error) {
	v := url.Values{}
	if err := params.PageOptions.apply(v, MaxContactPageSize); err != nil {
		return nil, err
	}
	if len(params.ExternalIDs) > 0 {
		v["externalIds"] = append([]string(nil), params.ExternalIDs...)
	}
	if len(params.Sources) > 0 {
		v["sources"] = append([]string(nil), params.Sources...)
	}
	return newIter[Contact](s.core.List(pathContacts, v)), nil
}

// Create creates a contact.
func (s *ContactsService) Create(ctx context.Context, input ContactInput) (*Contact, error) {
	var c Contact
	if err := s.send(ctx, http.MethodPost, pathContacts, input, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get fetches a single contact.
func (s *ContactsService) Get(ctx context.Context, id string) (*Contact, error) {
	path, err := resourcePath(pathContacts, id)
	if err != nil {
		return nil, err
	}
	var c Contact
	if err := s.get(ctx, path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update replaces a contact's fields.
func (s *ContactsService) Update(ctx context.Context, id string, input ContactInput) (*Contact, error) {
	path, err := resourcePath(pathContacts, id)
	if err != nil {
		return nil, err
	}
	var c Contact
	if err := s.send(ctx, http.MethodPut, path, input, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a contact.
func (s *ContactsService) Delete(ctx context.Context, id string) error {
	path, err := resourcePath(pathContacts, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, path)
}

// ContactCustomFieldsService lists the workspace's custom contact fields.
type ContactCustomFieldsService struct{ service }

// List returns every custom field. The endpoint is not paginated.
func (s *ContactCustomFieldsService) List(ctx context.Context) ([]ContactCustomField, error) {
	body, err := s.core.Get(ctx, pathContactCustomFields, nil)
	if err != nil {
		return nil, err
	}
	var fields []ContactCustomField
	if data, ok := body["data"]; ok && data != nil {
		if err := decodeInto(data, &fields); err != nil {
			return nil, err
		}
	}
	return fields, nil
}
