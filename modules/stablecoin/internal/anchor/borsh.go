package anchor

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
)

// ErrTruncated is returned when an event body ends before all of its fields were read.
var ErrTruncated = errors.New("event data is truncated")

// maxStringLength guards against corrupted length prefixes.
const maxStringLength = 10 * 1024

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) next(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, errors.Wrapf(ErrTruncated, "need %d bytes at offset %d, have %d", n, d.pos, len(d.data)-d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) remaining() int {
	return len(d.data) - d.pos
}

func (d *decoder) decodeField(t FieldType) (any, error) {
	switch t {
	case FieldPublicKey:
		b, err := d.next(PublicKeyLength)
		if err != nil {
			return nil, err
		}
		var pk PublicKey
		copy(pk[:], b)
		return pk, nil
	case FieldU8:
		b, err := d.next(1)
		if err != nil {
			return nil, err
		}
		return b[0], nil
	case FieldBool:
		b, err := d.next(1)
		if err != nil {
			return nil, err
		}
		if b[0] > 1 {
			return nil, errors.Errorf("invalid bool value %d", b[0])
		}
		return b[0] == 1, nil
	case FieldU64:
		b, err := d.next(8)
		if err != nil {
			return nil, err
		}
		return uint128.From64(binary.LittleEndian.Uint64(b)), nil
	case FieldI64:
		b, err := d.next(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.LittleEndian.Uint64(b)), nil
	case FieldU128:
		b, err := d.next(16)
		if err != nil {
			return nil, err
		}
		return uint128.New(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
	case FieldString:
		b, err := d.next(4)
		if err != nil {
			return nil, err
		}
		n := binary.LittleEndian.Uint32(b)
		if n > maxStringLength {
			return nil, errors.Errorf("string length %d exceeds limit", n)
		}
		s, err := d.next(int(n))
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(s) {
			return nil, errors.New("string is not valid utf-8")
		}
		return string(s), nil
	default:
		return nil, errors.Errorf("unsupported field type %d", t)
	}
}

type encoder struct {
	buf []byte
}

func (e *encoder) encodeField(t FieldType, value any) error {
	switch t {
	case FieldPublicKey:
		switch v := value.(type) {
		case PublicKey:
			e.buf = append(e.buf, v[:]...)
		case string:
			pk, err := ParsePublicKey(v)
			if err != nil {
				return err
			}
			e.buf = append(e.buf, pk[:]...)
		default:
			return errors.Errorf("expect public key, got %T", value)
		}
	case FieldU8:
		v, ok := value.(uint8)
		if !ok {
			return errors.Errorf("expect uint8, got %T", value)
		}
		e.buf = append(e.buf, v)
	case FieldBool:
		v, ok := value.(bool)
		if !ok {
			return errors.Errorf("expect bool, got %T", value)
		}
		if v {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case FieldU64:
		var v uint64
		switch x := value.(type) {
		case uint64:
			v = x
		case uint128.Uint128:
			if x.Hi != 0 {
				return errors.Errorf("value %s overflows u64", x)
			}
			v = x.Lo
		default:
			return errors.Errorf("expect uint64, got %T", value)
		}
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	case FieldI64:
		v, ok := value.(int64)
		if !ok {
			return errors.Errorf("expect int64, got %T", value)
		}
		e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
	case FieldU128:
		v, ok := value.(uint128.Uint128)
		if !ok {
			return errors.Errorf("expect uint128, got %T", value)
		}
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v.Lo)
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v.Hi)
	case FieldString:
		v, ok := value.(string)
		if !ok {
			return errors.Errorf("expect string, got %T", value)
		}
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(v)))
		e.buf = append(e.buf, v...)
	default:
		return errors.Errorf("unsupported field type %d", t)
	}
	return nil
}
