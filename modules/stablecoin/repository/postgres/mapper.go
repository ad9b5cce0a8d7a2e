package postgres

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/sss-network/sss-indexer/modules/stablecoin/repository/postgres/gen"
)

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

func nullTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timestamptz(*t)
}

func timeFromTimestamptz(src pgtype.Timestamptz) time.Time {
	if !src.Valid {
		return time.Time{}
	}
	return src.Time.UTC()
}

func timePtrFromTimestamptz(src pgtype.Timestamptz) *time.Time {
	if !src.Valid {
		return nil
	}
	t := src.Time.UTC()
	return &t
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func uuidFromPg(src pgtype.UUID) uuid.UUID {
	if !src.Valid {
		return uuid.Nil
	}
	return uuid.UUID(src.Bytes)
}

func numericFromDecimal(src decimal.Decimal) (pgtype.Numeric, error) {
	var result pgtype.Numeric
	if err := result.UnmarshalJSON([]byte(src.String())); err != nil {
		return pgtype.Numeric{}, errors.WithStack(err)
	}
	return result, nil
}

func nullNumericFromDecimal(src *decimal.Decimal) (pgtype.Numeric, error) {
	if src == nil {
		return pgtype.Numeric{}, nil
	}
	return numericFromDecimal(*src)
}

func nullDecimalFromNumeric(src pgtype.Numeric) (*decimal.Decimal, error) {
	if !src.Valid {
		return nil, nil
	}
	result, err := decimalFromNumeric(src)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func nullInt2FromRoles(src *uint8) pgtype.Int2 {
	if src == nil {
		return pgtype.Int2{}
	}
	return pgtype.Int2{Int16: int16(*src), Valid: true}
}

func rolesFromInt2(src pgtype.Int2) *uint8 {
	if !src.Valid {
		return nil
	}
	roles := uint8(src.Int16)
	return &roles
}

func decimalFromNumeric(src pgtype.Numeric) (decimal.Decimal, error) {
	if !src.Valid {
		return decimal.Zero, nil
	}
	bytes, err := src.MarshalJSON()
	if err != nil {
		return decimal.Zero, errors.WithStack(err)
	}
	result, err := decimal.NewFromString(string(bytes))
	if err != nil {
		return decimal.Zero, errors.WithStack(err)
	}
	return result, nil
}

func mapEventModelToType(src gen.StablecoinEvent) (*entity.Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(src.Payload, &payload); err != nil {
		return nil, errors.Wrapf(err, "failed to parse payload of event %d", src.ID)
	}
	return &entity.Event{
		ID:        src.ID,
		Type:      src.Type,
		Subject:   src.Subject,
		Signature: src.Signature,
		Slot:      src.Slot,
		Timestamp: timeFromTimestamptz(src.Timestamp),
		Payload:   payload,
		CreatedAt: timeFromTimestamptz(src.CreatedAt),
	}, nil
}

func mapEventTypeToParams(src *entity.Event) (gen.InsertEventIfAbsentParams, error) {
	payload, err := json.Marshal(src.Payload)
	if err != nil {
		return gen.InsertEventIfAbsentParams{}, errors.Wrap(err, "failed to marshal payload")
	}
	return gen.InsertEventIfAbsentParams{
		Type:      src.Type,
		Subject:   src.Subject,
		Signature: src.Signature,
		Slot:      src.Slot,
		Timestamp: timestamptz(src.Timestamp),
		Payload:   payload,
	}, nil
}

func mapOperationModelToType(src gen.StablecoinOperation) (*entity.Operation, error) {
	amount, err := decimalFromNumeric(src.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse amount")
	}
	quota, err := nullDecimalFromNumeric(src.Quota)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse quota")
	}
	return &entity.Operation{
		ID:             uuidFromPg(src.ID),
		Kind:           entity.OperationKind(src.Kind),
		Target:         src.Target,
		To:             src.ToAccount,
		Amount:         amount,
		Memo:           src.Memo,
		Reason:         src.Reason,
		Roles:          rolesFromInt2(src.Roles),
		Quota:          quota,
		Signature:      src.Signature,
		IdempotencyKey: src.IdempotencyKey.String,
		Status:         entity.OperationStatus(src.Status),
		Error:          src.Error,
		CreatedAt:      timeFromTimestamptz(src.CreatedAt),
	}, nil
}

func mapOperationTypeToParams(src *entity.Operation) (gen.CreateOperationParams, error) {
	amount, err := numericFromDecimal(src.Amount)
	if err != nil {
		return gen.CreateOperationParams{}, errors.Wrap(err, "failed to convert amount")
	}
	quota, err := nullNumericFromDecimal(src.Quota)
	if err != nil {
		return gen.CreateOperationParams{}, errors.Wrap(err, "failed to convert quota")
	}
	return gen.CreateOperationParams{
		ID:             pgUUID(src.ID),
		Kind:           src.Kind.String(),
		Target:         src.Target,
		ToAccount:      src.To,
		Amount:         amount,
		Memo:           src.Memo,
		Reason:         src.Reason,
		Roles:          nullInt2FromRoles(src.Roles),
		Quota:          quota,
		Signature:      src.Signature,
		IdempotencyKey: nullText(src.IdempotencyKey),
		Status:         string(src.Status),
		Error:          src.Error,
		CreatedAt:      timestamptz(src.CreatedAt),
	}, nil
}

func mapWebhookModelToType(src gen.StablecoinWebhook) *entity.Webhook {
	return &entity.Webhook{
		ID:         uuidFromPg(src.ID),
		URL:        src.Url,
		EventTypes: src.EventTypes,
		Secret:     src.Secret,
		Active:     src.Active,
		CreatedAt:  timeFromTimestamptz(src.CreatedAt),
	}
}

func mapDeliveryModelToType(src gen.StablecoinDelivery) *entity.Delivery {
	return &entity.Delivery{
		ID:            src.ID,
		WebhookID:     uuidFromPg(src.WebhookID),
		EventID:       src.EventID,
		Status:        entity.DeliveryStatus(src.Status),
		Attempts:      src.Attempts,
		LastAttemptAt: timePtrFromTimestamptz(src.LastAttemptAt),
		NextRetryAt:   timePtrFromTimestamptz(src.NextRetryAt),
		ResponseCode:  src.ResponseCode.Int32,
		CreatedAt:     timeFromTimestamptz(src.CreatedAt),
	}
}

func mapIndexerStateModelToType(src gen.StablecoinIndexerState) entity.IndexerState {
	return entity.IndexerState{
		ProgramID:          src.ProgramID,
		LastSlot:           src.LastSlot,
		DBVersion:          src.DbVersion,
		EventSchemaVersion: src.EventSchemaVersion,
		CreatedAt:          timeFromTimestamptz(src.CreatedAt),
		UpdatedAt:          timeFromTimestamptz(src.UpdatedAt),
	}
}
