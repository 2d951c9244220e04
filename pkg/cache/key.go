package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key written by this package.
const KeyPrefix = "openphone"

// CacheKey identifies a cached API response.
type CacheKey struct {
	// Endpoint is the path relative to the API base URL (e.g. "contacts/ct_1").
	Endpoint string

	// QueryParams are the request query parameters. Repeated keys are kept.
	QueryParams url.Values

	// Account is the credential fingerprint the response was fetched with.
	// Responses are never shared between API keys.
	Account string
}

// String generates a deterministic cache key string.
// Format: openphone:<account>:<endpoint>:k1=v1:k1=v2:k2=v
//
// Example:
//
//	openphone:3f2a9c01be7d:contacts/ct_1
//	openphone:3f2a9c01be7d:calls:participants=+1555:participants=+1666
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	account := k.Account
	if account == "" {
		account = "anon"
	}
	parts = append(parts, account)

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			for _, v := range values {
				parts = append(parts, key+"="+v)
			}
		}
	}

	return strings.Join(parts, ":")
}

// AccountPattern returns a Redis MATCH pattern covering every key cached for account.
func AccountPattern(account string) string {
	if account == "" {
		account = "anon"
	}
	return KeyPrefix + ":" + account + ":*"
}
