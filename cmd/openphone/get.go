package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/Sternrassler/openphone-client/pkg/openphone"
	"github.com/Sternrassler/openphone-client/pkg/pagination"
	"github.com/Sternrassler/openphone-client/pkg/ratelimit"
	"github.com/spf13/cobra"
)

type getter func(ctx context.Context, op *openphone.Client, id string) (any, error)

var getters = map[string]getter{
	"messages": func(ctx context.Context, op *openphone.Client, id string) (any, error) {
		return op.Messages.Get(ctx, id)
	},
	"contacts": func(ctx context.Context, op *openphone.Client, id string) (any, error) {
		return op.Contacts.Get(ctx, id)
	},
	"calls": func(ctx context.Context, op *openphone.Client, id string) (any, error) {
		return op.Calls.Get(ctx, id)
	},
	"call-recordings": func(ctx context.Context, op *openphone.Client, id string) (any, error) {
		return op.CallRecordings.Get(ctx, id)
	},
	"call-summaries": func(ctx context.Context, op *openphone.Client, id string) (any, error) {
		return op.CallSummaries.Get(ctx, id)
	},
	"call-transcripts": func(ctx context.Context, op *openphone.Client, id string) (any, error) {
		return op.CallTranscripts.Get(ctx, id)
	},
	"webhooks": func(ctx context.Context, op *openphone.Client, id string) (any, error) {
		return op.Webhooks.Get(ctx, id)
	},
}

func getterNames() []string {
	names := make([]string, 0, len(getters))
	for name := range getters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Fetch a single record",
		Long:  "Fetch one of: " + strings.Join(getterNames(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			get, ok := getters[args[0]]
			if !ok {
				return fmt.Errorf("unknown resource %q (one of: %s)", args[0], strings.Join(getterNames(), ", "))
			}
			if err := checkFormat(a.format()); err != nil {
				return err
			}

			s, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := get(cmd.Context(), s.op, args[1])
			if err != nil {
				return err
			}
			return writeObject(a.out, a.format(), v)
		},
	}
}

func (a *app) rawCommand() *cobra.Command {
	var (
		data  string
		query []string
	)

	cmd := &cobra.Command{
		Use:   "raw <method> <path>",
		Short: "Send an arbitrary request and print the response",
		Long: `Send a request relative to the base URL and print the status and body.
Error statuses are printed, not returned; network failures are still retried.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])

			q := url.Values{}
			for _, kv := range query {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("query %q must be key=value", kv)
				}
				q.Add(k, v)
			}
			var body any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return fmt.Errorf("--data is not valid JSON: %w", err)
				}
			}

			s, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.op.Raw(cmd.Context(), method, args[1], q, body)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.errOut, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
			if resp.StatusCode == http.StatusTooManyRequests {
				if d, ok := ratelimit.ParseRetryAfter(resp.Header); ok {
					fmt.Fprintf(a.errOut, "Retry after %s\n", d)
				}
			}
			if next := nextPageToken(resp.Body); next != "" {
				fmt.Fprintf(a.errOut, "Next page: --query %s=%s\n", pagination.ParamPageToken, next)
			}

			var pretty any
			if json.Unmarshal(resp.Body, &pretty) == nil {
				return writeJSON(a.out, pretty)
			}
			_, err = a.out.Write(resp.Body)
			return err
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter key=value (repeatable)")
	return cmd
}

func nextPageToken(body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	page, err := pagination.ParsePage(parsed)
	if err != nil {
		return ""
	}
	return page.NextCursor
}
