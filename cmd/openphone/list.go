package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/openphone-client/pkg/client"
	"github.com/Sternrassler/openphone-client/pkg/openphone"
	"github.com/Sternrassler/openphone-client/pkg/pagination"
	"github.com/Sternrassler/openphone-client/pkg/ratelimit"
	"github.com/spf13/cobra"
)

// listFlags holds the filters accepted by the list command. Each resource
// uses the subset that applies to it.
type listFlags struct {
	maxResults    int
	limit         int
	userID        string
	phoneNumberID string
	participants  []string
	createdAfter  string
	createdBefore string
	waitRateLimit int
}

// listable describes a collection the list command and the proxy can walk.
type listable struct {
	columns []column
	open    func(op *openphone.Client, f listFlags) (*pagination.Paginator, error)
}

var listables = map[string]listable{
	"phone-numbers": {
		columns: []column{{"ID", "id"}, {"Number", "number"}, {"Name", "name"}, {"Group", "groupId"}},
		open: func(op *openphone.Client, f listFlags) (*pagination.Paginator, error) {
			return op.PhoneNumbers.List(f.userID).Paginator(), nil
		},
	},
	"conversations": {
		columns: []column{{"ID", "id"}, {"Phone Number", "phoneNumberId"}, {"Participants", "participants"}, {"Updated", "updatedAt"}},
		open: func(op *openphone.Client, f listFlags) (*pagination.Paginator, error) {
			it, err := op.Conversations.List(openphone.ListConversationsParams{
				UserID:        f.userID,
				CreatedAfter:  f.createdAfter,
				CreatedBefore: f.createdBefore,
				PageOptions:   openphone.PageOptions{MaxResults: f.maxResults},
			})
			if err != nil {
				return nil, err
			}
			return it.Paginator(), nil
		},
	},
	"webhooks": {
		columns: []column{{"ID", "id"}, {"URL", "url"}, {"Status", "status"}, {"Events", "events"}},
		open: func(op *openphone.Client, f listFlags) (*pagination.Paginator, error) {
			return op.Webhooks.List(f.userID).Paginator(), nil
		},
	},
	"contacts": {
		columns: []column{{"ID", "id"}, {"First Name", "defaultFields.firstName"}, {"Last Name", "defaultFields.lastName"}, {"Company", "defaultFields.company"}},
		open: func(op *openphone.Client, f listFlags) (*pagination.Paginator, error) {
			it, err := op.Contacts.List(openphone.ListContactsParams{
				PageOptions: openphone.PageOptions{MaxResults: f.maxResults},
			})
			if err != nil {
				return nil, err
			}
			return it.Paginator(), nil
		},
	},
	"messages": {
		columns: []column{{"ID", "id"}, {"Direction", "direction"}, {"From", "from"}, {"To", "to"}, {"Status", "status"}, {"Created", "createdAt"}},
		open: func(op *openphone.Client, f listFlags) (*pagination.Paginator, error) {
			it, err := op.Messages.List(openphone.ListMessagesParams{
				PhoneNumberID: f.phoneNumberID,
				Participants:  f.participants,
				UserID:        f.userID,
				CreatedAfter:  f.createdAfter,
				CreatedBefore: f.createdBefore,
				PageOptions:   openphone.PageOptions{MaxResults: f.maxResults},
			})
			if err != nil {
				return nil, err
			}
			return it.Paginator(), nil
		},
	},
	"calls": {
		columns: []column{{"ID", "id"}, {"Direction", "direction"}, {"Status", "status"}, {"Duration", "duration"}, {"Created", "createdAt"}},
		open: func(op *openphone.Client, f listFlags) (*pagination.Paginator, error) {
			it, err := op.Calls.List(openphone.ListCallsParams{
				PhoneNumberID: f.phoneNumberID,
				Participants:  f.participants,
				UserID:        f.userID,
				CreatedAfter:  f.createdAfter,
				CreatedBefore: f.createdBefore,
				PageOptions:   openphone.PageOptions{MaxResults: f.maxResults},
			})
			if err != nil {
				return nil, err
			}
			return it.Paginator(), nil
		},
	},
}

func listableNames() []string {
	names := make([]string, 0, len(listables))
	for name := range listables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (a *app) listCommand() *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:       "list <resource>",
		Short:     "List a collection, following every page",
		Long:      "List one of: " + strings.Join(listableNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: listableNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, ok := listables[args[0]]
			if !ok {
				return fmt.Errorf("unknown resource %q (one of: %s)", args[0], strings.Join(listableNames(), ", "))
			}
			if err := checkFormat(a.format()); err != nil {
				return err
			}

			s, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := res.open(s.op, f)
			if err != nil {
				return err
			}
			records, err := a.drain(cmd.Context(), s, p, f)
			if err != nil {
				return err
			}
			return writeRecords(a.out, a.format(), res.columns, records)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.maxResults, "max-results", 0, "page size requested from the API")
	flags.IntVar(&f.limit, "limit", 0, "stop after this many records (0 = all)")
	flags.StringVar(&f.userID, "user-id", "", "filter by user id")
	flags.StringVar(&f.phoneNumberID, "phone-number-id", "", "phone number id (messages, calls)")
	flags.StringSliceVar(&f.participants, "participant", nil, "participant phone number (messages, calls)")
	flags.StringVar(&f.createdAfter, "created-after", "", "RFC 3339 lower bound")
	flags.StringVar(&f.createdBefore, "created-before", "", "RFC 3339 upper bound")
	flags.IntVar(&f.waitRateLimit, "wait-rate-limit", 0, "times to wait out a 429 before giving up")
	return cmd
}

// drain collects records from p. Rate-limited pages are retried after the
// cooldown up to f.waitRateLimit times; the paginator stays on the failed
// page, so retrying Next refetches it.
func (a *app) drain(ctx context.Context, s *session, p *pagination.Paginator, f listFlags) ([]map[string]any, error) {
	logger := a.logger()
	var records []map[string]any
	waits := 0
	for f.limit <= 0 || len(records) < f.limit {
		rec, err := p.Next(ctx)
		if errors.Is(err, pagination.Done) {
			break
		}
		if err != nil {
			if !client.IsRateLimited(err) || waits >= f.waitRateLimit {
				return records, err
			}
			waits++
			logger.Warn().Int("wait", waits).Msg("Rate limited, waiting for cooldown")
			if err := waitRateLimit(ctx, s, err); err != nil {
				return records, err
			}
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func waitRateLimit(ctx context.Context, s *session, cause error) error {
	if tracker := s.op.Core().RateLimiter(); tracker != nil {
		return tracker.Wait(ctx, s.op.Core().Fingerprint())
	}
	d, ok := client.RetryAfter(cause)
	if !ok {
		d = ratelimit.DefaultCooldown
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
