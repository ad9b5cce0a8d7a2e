package webhook

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/pkg/httpclient"
)

const DefaultRequestTimeout = 10 * time.Second

type Request struct {
	URL        string
	Secret     string
	EventType  string
	DeliveryID int64
	Body       []byte
}

type Sender interface {
	// Send posts the request and returns the response status code. A transport failure returns an error
	// and a zero status code.
	Send(ctx context.Context, req Request) (int, error)
}

var _ Sender = (*HTTPSender)(nil)

type HTTPSender struct {
	Timeout time.Duration
	Debug   bool
}

func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPSender{Timeout: timeout}
}

func (s *HTTPSender) Send(ctx context.Context, req Request) (int, error) {
	client, err := httpclient.New(req.URL, httpclient.Config{
		Debug:   s.Debug,
		Timeout: s.Timeout,
		Headers: map[string]string{
			"User-Agent": "sss-indexer-webhook",
		},
	})
	if err != nil {
		return 0, errors.Wrap(err, "invalid webhook url")
	}
	resp, err := client.Post(ctx, "", httpclient.RequestOptions{
		Body: req.Body,
		Header: map[string]string{
			HeaderSignature: Sign(req.Secret, req.Body),
			HeaderEvent:     req.EventType,
			HeaderDelivery:  strconv.FormatInt(req.DeliveryID, 10),
		},
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to post webhook")
	}
	return resp.StatusCode, nil
}
