package httphandler

import (
	"strconv"
	"strings"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/modules/stablecoin/livefeed"
	"github.com/sss-network/sss-indexer/modules/stablecoin/usecase"
)

const DefaultKeepalive = 15 * time.Second

type HttpHandler struct {
	usecase   *usecase.Usecase
	broker    *livefeed.Broker
	keepalive time.Duration
}

func New(usecase *usecase.Usecase, broker *livefeed.Broker, keepalive time.Duration) *HttpHandler {
	return &HttpHandler{
		usecase:   usecase,
		broker:    broker,
		keepalive: utils.Default(keepalive, DefaultKeepalive),
	}
}

type pageRequest struct {
	Page  int
	Limit int
}

func (r *pageRequest) validate() []error {
	var errList []error
	if r.Page < 0 {
		errList = append(errList, errors.New("'page' must be at least 1"))
	}
	if r.Limit < 0 || r.Limit > common.MaxPageLimit {
		errList = append(errList, errors.Newf("'limit' must be between 1 and %d", common.MaxPageLimit))
	}
	r.Page = utils.Default(r.Page, 1)
	r.Limit = utils.Default(r.Limit, common.DefaultPageLimit)
	return errList
}

func (r pageRequest) offset() int {
	return common.Offset(r.Page, r.Limit)
}

// parseTime accepts RFC3339 or unix seconds. An empty value means no bound.
func parseTime(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.Unix(seconds, 0).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, errors.Newf("'%s' must be an RFC3339 time or unix seconds", field)
	}
	t = t.UTC()
	return &t, nil
}

type timeRange struct {
	From *time.Time
	To   *time.Time
}

func parseTimeRange(from, to string) (timeRange, []error) {
	var errList []error
	fromTime, err := parseTime("from", from)
	if err != nil {
		errList = append(errList, err)
	}
	toTime, err := parseTime("to", to)
	if err != nil {
		errList = append(errList, err)
	}
	if fromTime != nil && toTime != nil && toTime.Before(*fromTime) {
		errList = append(errList, errors.New("'to' must not be before 'from'"))
	}
	return timeRange{From: fromTime, To: toTime}, errList
}

func validationError(errList []error) error {
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}
