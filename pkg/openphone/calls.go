package openphone

import (
	"context"
	"net/url"

	"github.com/Sternrassler/openphone-client/pkg/client"
	"github.com/Sternrassler/openphone-client/pkg/pagination"
)

// CallsService covers the calls endpoints.
type CallsService struct{ service }

// ListCallsParams filters a call listing. The API only supports one
// participant per listing.
type ListCallsParams struct {
	PhoneNumberID string
	Participants  []string
	UserID        string
	CreatedAfter  string
	CreatedBefore string
	PageOptions
}

func (p ListCallsParams) values() (url.Values, error) {
	if len(p.Participants) > 1 {
		return nil, client.NewValidationError("calls can only be listed for one participant at a time (got %d)", len(p.Participants))
	}
	return ListMessagesParams(p).values()
}

// List returns a lazy iterator over calls with a single participant.
func (s *CallsService) List(params ListCallsParams) (*Iter[Call], error) {
	v, err := params.values()
	if err != nil {
		return nil, err
	}
	return newIter[Call](s.core.List(pathCalls, v)), nil
}

// Get fetches a single call.
func (s *CallsService) Get(ctx context.Context, id string) (*Call, error) {
	path, err := resourcePath(pathCalls, id)
	if err != nil {
		return nil, err
	}
	var call Call
	if err := s.get(ctx, path, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// ListForParticipants lists calls between phoneNumberID and each participant,
// walking one paginator per participant with at most concurrency in flight.
// Results are keyed by participant. On failure whatever was gathered before
// the batch was cancelled is returned with the error.
func (s *CallsService) ListForParticipants(ctx context.Context, phoneNumberID string, participants []string, concurrency int) (map[string][]Call, error) {
	if err := requireField("phoneNumberId", phoneNumberID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(participants))
	queries := make([]pagination.Query, 0, len(participants))
	for _, participant := range participants {
		if err := requireField("participants", participant); err != nil {
			return nil, err
		}
		if _, dup := seen[participant]; dup {
			return nil, client.NewValidationError("duplicate participant %q", participant)
		}
		seen[participant] = struct{}{}

		v, err := ListCallsParams{
			PhoneNumberID: phoneNumberID,
			Participants:  []string{participant},
		}.values()
		if err != nil {
			return nil, err
		}
		queries = append(queries, pagination.Query{Endpoint: pathCalls, Params: v})
	}

	cfg := pagination.DefaultConfig()
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	pages, fetchErr := pagination.NewBatchFetcher(s.core, cfg).FetchAll(ctx, queries)

	out := make(map[string][]Call, len(participants))
	for i, records := range pages {
		calls := make([]Call, 0, len(records))
		for _, rec := range records {
			var call Call
			if err := decodeInto(rec, &call); err != nil {
				return out, err
			}
			calls = append(calls, call)
		}
		out[participants[i]] = calls
	}
	return out, fetchErr
}

// CallRecordingsService fetches call recordings.
type CallRecordingsService struct{ service }

// Get fetches the recording of a call.
func (s *CallRecordingsService) Get(ctx context.Context, callID string) (*CallRecording, error) {
	path, err := resourcePath(pathCallRecordings, callID)
	if err != nil {
		return nil, err
	}
	var rec CallRecording
	if err := s.get(ctx, path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CallSummariesService fetches AI call summaries.
type CallSummariesService struct{ service }

// Get fetches the summary of a call.
func (s *CallSummariesService) Get(ctx context.Context, callID string) (*CallSummary, error) {
	path, err := resourcePath(pathCallSummaries, callID)
	if err != nil {
		return nil, err
	}
	var summary CallSummary
	if err := s.get(ctx, path, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// CallTranscriptsService fetches call transcripts.
type CallTranscriptsService struct{ service }

// Get fetches a transcript. A missing status is reported as TranscriptStatusUnknown.
func (s *CallTranscriptsService) Get(ctx context.Context, id string) (*CallTranscript, error) {
	path, err := resourcePath(pathCallTranscripts, id)
	if err != nil {
		return nil, err
	}
	var t CallTranscript
	if err := s.get(ctx, path, &t); err != nil {
		return nil, err
	}
	if t.Status == "" {
		t.Status = TranscriptStatusUnknown
	}
	return &t, nil
}
