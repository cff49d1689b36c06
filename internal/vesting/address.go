package vesting

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/congo-pay/congo_vesting/internal/identity"
)

// DeriveAddress computes the identity of a deployment from its creator, beneficiary,
// start time and a random salt.
func DeriveAddress(controller, beneficiary identity.ID, start Timestamp, salt []byte) identity.ID {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(start))

	buf := make([]byte, 0, identity.Size*2+len(ts)+len(salt))
	buf = append(buf, controller[:]...)
	buf = append(buf, beneficiary[:]...)
	buf = append(buf, ts[:]...)
	buf = append(buf, salt...)
	return identity.ID(blake2b.Sum256(buf))
}

// AccountCode is the custody account of a deployment.
func AccountCode(address identity.ID) string {
	return "vesting:" + address.String()
}
