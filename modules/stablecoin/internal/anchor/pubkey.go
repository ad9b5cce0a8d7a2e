package anchor

import (
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
)

const PublicKeyLength = 32

// PublicKey is a 32-byte account address, displayed in base58.
type PublicKey [PublicKeyLength]byte

func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// ParsePublicKey decodes a base58 address. It must decode to exactly 32 bytes.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	decoded := base58.Decode(s)
	if len(decoded) != PublicKeyLength {
		return pk, errors.Wrapf(errs.InvalidArgument, "invalid public key %q: must be base58 encoded 32 bytes", s)
	}
	copy(pk[:], decoded)
	return pk, nil
}
