package anchor

import (
	"encoding/base64"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
)

// Event is a decoded program event. Data values keep their wire types:
// PublicKey, uint8, uint128.Uint128 (u64 and u128), int64, string and bool.
type Event struct {
	Name string
	Data map[string]any
}

// DecodeEvent decodes an event body (discriminator followed by borsh fields).
// It reports false when the discriminator belongs to no known event.
func DecodeEvent(data []byte) (Event, bool, error) {
	if len(data) < 8 {
		return Event{}, false, errors.Wrap(ErrTruncated, "missing discriminator")
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	schema, ok := eventsByDiscriminator[disc]
	if !ok {
		return Event{}, false, nil
	}

	d := &decoder{data: data, pos: 8}
	event := Event{
		Name: schema.Name,
		Data: make(map[string]any, len(schema.Fields)),
	}
	for _, field := range schema.Fields {
		value, err := d.decodeField(field.Type)
		if err != nil {
			return Event{}, true, errors.Wrapf(err, "can't decode %s.%s", schema.Name, field.Name)
		}
		event.Data[field.Name] = value
	}
	return event, true, nil
}

// EncodeEvent is the inverse of DecodeEvent. Every schema field must be present in data.
func EncodeEvent(name string, data map[string]any) ([]byte, error) {
	schema, ok := eventsByName[name]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "unknown event %q", name)
	}
	e := &encoder{buf: append([]byte(nil), schema.Discriminator[:]...)}
	for _, field := range schema.Fields {
		value, ok := data[field.Name]
		if !ok {
			return nil, errors.Wrapf(errs.InvalidArgument, "missing field %s.%s", name, field.Name)
		}
		if err := e.encodeField(field.Type, value); err != nil {
			return nil, errors.Wrapf(err, "can't encode %s.%s", name, field.Name)
		}
	}
	return e.buf, nil
}

// EncodeLogLine encodes the event as the `Program data:` log line the program emits.
func EncodeLogLine(name string, data map[string]any) (string, error) {
	b, err := EncodeEvent(name, data)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return programDataPrefix + base64.StdEncoding.EncodeToString(b), nil
}
