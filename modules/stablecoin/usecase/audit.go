package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	cstream "github.com/planxnx/concurrent-stream"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
)

const (
	auditPageSize    = 500
	auditConcurrency = 4
	gatewayActor     = "gateway"
)

// AuditCSVHeader is the header row of the CSV audit export.
var AuditCSVHeader = []string{"timestamp", "action", "actor", "target", "amount", "details", "signature"}

var (
	// payload fields naming who performed an event, in lookup order
	actorFields = []string{
		"minter", "burner", "frozen_by", "thawed_by", "paused_by", "unpaused_by", "updated_by",
		"old_authority", "blacklisted_by", "removed_by", "seized_by", "authority",
	}
	// payload fields naming the account an event acts on, in lookup order
	targetFields = []string{"recipient", "target_account", "target", "new_authority", "wallet", "from_account", "mint"}
)

// AuditRow is one flattened entry of the audit trail, built from an event or an operation.
type AuditRow struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Amount    string    `json:"amount"`
	Details   string    `json:"details"`
	Signature string    `json:"signature"`
}

// CSVRecord returns the row in AuditCSVHeader order.
func (r AuditRow) CSVRecord() []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Action,
		r.Actor,
		r.Target,
		r.Amount,
		r.Details,
		r.Signature,
	}
}

func auditRowFromEvent(event *entity.Event) AuditRow {
	row := AuditRow{
		Timestamp: event.Timestamp,
		Action:    event.Type,
		Signature: event.Signature,
	}
	used := make(map[string]bool)
	pick := func(fields []string) string {
		for _, field := range fields {
			if v, ok := event.Payload[field]; ok && v != nil {
				used[field] = true
				return fmt.Sprint(v)
			}
		}
		return ""
	}
	row.Actor = pick(actorFields)
	row.Target = pick(targetFields)
	row.Amount = pick([]string{"amount"})

	details := make(map[string]any, len(event.Payload))
	for k, v := range event.Payload {
		if !used[k] {
			details[k] = v
		}
	}
	row.Details = marshalDetails(details)
	return row
}

func auditRowFromOperation(operation *entity.Operation) AuditRow {
	row := AuditRow{
		Timestamp: operation.CreatedAt,
		Action:    "command." + operation.Kind.String(),
		Actor:     gatewayActor,
		Target:    operation.Target,
		Signature: operation.Signature,
	}
	if operation.Kind.HasAmount() {
		row.Amount = operation.Amount.String()
	}
	details := map[string]any{"status": operation.Status}
	if operation.Memo != "" {
		details["memo"] = operation.Memo
	}
	if operation.To != "" {
		details["to"] = operation.To
	}
	if operation.Reason != "" {
		details["reason"] = operation.Reason
	}
	if operation.Roles != nil {
		details["roles"] = *operation.Roles
	}
	if operation.Quota != nil {
		details["quota"] = operation.Quota.String()
	}
	if operation.Error != "" {
		details["error"] = operation.Error
	}
	row.Details = marshalDetails(details)
	return row
}

func marshalDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprint(details)
	}
	return string(data)
}

type auditPage struct {
	rows []AuditRow
	err  error
}

// GetAuditTrail returns every event and operation within [from, to], flattened and sorted newest first.
func (u *Usecase) GetAuditTrail(ctx context.Context, from, to *time.Time) ([]AuditRow, error) {
	ctx = logger.WithContext(ctx, slogx.String("package", "usecase"), slogx.String("event", "audit_trail"))

	// first pages tell how many pages remain
	events, eventsTotal, err := u.stablecoinDg.GetEvents(ctx, entity.EventFilter{From: from, To: to, Limit: auditPageSize})
	if err != nil {
		return nil, errors.Wrap(err, "error during GetEvents")
	}
	operations, operationsTotal, err := u.stablecoinDg.GetOperations(ctx, entity.OperationFilter{From: from, To: to, Limit: auditPageSize})
	if err != nil {
		return nil, errors.Wrap(err, "error during GetOperations")
	}

	rows := make([]AuditRow, 0, eventsTotal+operationsTotal)
	for _, event := range events {
		rows = append(rows, auditRowFromEvent(event))
	}
	for _, operation := range operations {
		rows = append(rows, auditRowFromOperation(operation))
	}

	out := make(chan auditPage)
	stream := cstream.NewStream(ctx, auditConcurrency, out)
	go func() {
		defer close(out)
		_ = stream.Wait()
	}()
	go func() {
		defer stream.Close()
		for offset := auditPageSize; int64(offset) < eventsTotal; offset += auditPageSize {
			offset := offset
			stream.Go(func() auditPage {
				events, _, err := u.stablecoinDg.GetEvents(ctx, entity.EventFilter{From: from, To: to, Offset: offset, Limit: auditPageSize})
				if err != nil {
					return auditPage{err: errors.Wrapf(err, "failed to get events: offset: %d", offset)}
				}
				page := make([]AuditRow, 0, len(events))
				for _, event := range events {
					page = append(page, auditRowFromEvent(event))
				}
				return auditPage{rows: page}
			})
		}
		for offset := auditPageSize; int64(offset) < operationsTotal; offset += auditPageSize {
			offset := offset
			stream.Go(func() auditPage {
				operations, _, err := u.stablecoinDg.GetOperations(ctx, entity.OperationFilter{From: from, To: to, Offset: offset, Limit: auditPageSize})
				if err != nil {
					return auditPage{err: errors.Wrapf(err, "failed to get operations: offset: %d", offset)}
				}
				page := make([]AuditRow, 0, len(operations))
				for _, operation := range operations {
					page = append(page, auditRowFromOperation(operation))
				}
				return auditPage{rows: page}
			})
		}
	}()

	var errList []error
	for page := range out {
		if page.err != nil {
			errList = append(errList, page.err)
			continue
		}
		rows = append(rows, page.rows...)
	}
	if err := errors.Join(errList...); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})
	logger.DebugContext(ctx, "built audit trail", slogx.Int("rows", len(rows)))
	return rows, nil
}

// WriteAuditCSV writes rows with a header line.
func WriteAuditCSV(w io.Writer, rows []AuditRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(AuditCSVHeader); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for _, row := range rows {
		if err := writer.Write(row.CSVRecord()); err != nil {
			return errors.Wrap(err, "failed to write csv row")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "failed to flush csv")
}
