package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Request describes a single HTTP round trip.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Header  http.Header
	Body    any
	Timeout time.Duration
}

// Response is an unparsed HTTP response. Status codes are not interpreted.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs exactly one network round trip per Send call.
// Network-layer failures are returned as *Error with KindNetwork.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// RestyTransport is the default Transport, backed by resty with its own
// retry support disabled.
type RestyTransport struct {
	rc *resty.Client
}

// NewRestyTransport creates a transport. A nil httpClient uses resty's default.
func NewRestyTransport(httpClient *http.Client, logger zerolog.Logger) *RestyTransport {
	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New()
	}

	rc.SetRetryCount(0).
		SetLogger(restyLogger{logger: logger})

	return &RestyTransport{rc: rc}
}

// Send implements Transport.
func (t *RestyTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	r := t.rc.R().SetContext(ctx)
	for key, values := range req.Header {
		for _, v := range values {
			r.Header.Add(key, v)
		}
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, &Error{
			Kind:    KindNetwork,
			Message: "network request failed",
			Err:     err,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// restyLogger routes resty's internal messages into zerolog.
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.logger.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...any)  { l.logger.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...any) { l.logger.Debug().Msgf(format, v...) }
