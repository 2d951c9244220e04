package openphone

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/openphone-client/pkg/client"
	"github.com/Sternrassler/openphone-client/pkg/pagination"
)

// Page size bounds accepted by the API.
const (
	MaxPageSize        = 100
	MaxContactPageSize = 50
)

// PageOptions are the pagination controls shared by every list call.
// Zero values are omitted from the request.
type PageOptions struct {
	MaxResults int
	PageToken  string
}

func (o PageOptions) apply(params url.Values, maxSize int) error {
	if o.MaxResults != 0 {
		if o.MaxResults < 1 || o.MaxResults > maxSize {
			return client.NewValidationError("maxResults must be between 1 and %d (got %d)", maxSize, o.MaxResults)
		}
		params.Set(pagination.ParamMaxResults, strconv.Itoa(o.MaxResults))
	}
	if o.PageToken != "" {
		if strings.TrimSpace(o.PageToken) == "" {
			return client.NewValidationError("pageToken must be a non-empty string")
		}
		params.Set(pagination.ParamPageToken, o.PageToken)
	}
	return nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return client.NewValidationError("%s is required", name)
	}
	return nil
}
