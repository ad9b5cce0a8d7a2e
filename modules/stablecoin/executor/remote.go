package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/pkg/httpclient"
)

const DefaultRemoteTimeout = 30 * time.Second

var _ Executor = (*Remote)(nil)

// Remote relays commands to a signing service that builds, signs and sends the transactions.
type Remote struct {
	client *httpclient.Client
}

type RemoteConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Debug   bool
}

func NewRemote(config RemoteConfig) (*Remote, error) {
	if config.URL == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "remote executor url is required")
	}
	headers := map[string]string{}
	if config.APIKey != "" {
		headers["Authorization"] = "Bearer " + config.APIKey
	}
	client, err := httpclient.New(config.URL, httpclient.Config{
		Debug:   config.Debug,
		Headers: headers,
		Timeout: utils.Default(config.Timeout, DefaultRemoteTimeout),
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create remote executor client")
	}
	return &Remote{client: client}, nil
}

type submitRequest struct {
	Kind   entity.OperationKind `json:"kind"`
	Params Params               `json:"params"`
}

type submitResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

func (r *Remote) Submit(ctx context.Context, kind entity.OperationKind, params Params) (string, error) {
	body, err := json.Marshal(submitRequest{Kind: kind, Params: params})
	if err != nil {
		return "", errors.Wrap(err, "can't marshal submit request")
	}
	resp, err := r.client.Post(ctx, "/submit", httpclient.RequestOptions{Body: body})
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "can't reach remote executor"), errs.Unavailable)
	}

	var result submitResponse
	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		if err := resp.JSON(&result); err != nil {
			return "", errors.Wrap(err, "invalid remote executor response")
		}
		if result.Signature == "" {
			return "", errors.New("remote executor returned no signature")
		}
		return result.Signature, nil
	case status >= 400 && status < 500:
		if err := resp.JSON(&result); err != nil || result.Error == "" {
			return "", reject(string(resp.Body))
		}
		return "", reject(result.Error)
	default:
		return "", errors.Mark(errors.Errorf("remote executor responded with status %d", status), errs.Unavailable)
	}
}
