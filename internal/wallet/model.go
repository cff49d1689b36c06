package wallet

import (
	"time"

	"github.com/congo-pay/congo_vesting/internal/identity"
)

// Wallet is the external account an identity receives released funds into.
type Wallet struct {
	Owner       identity.ID
	AccountCode string
	Status      string
	CreatedAt   time.Time
}

// Balance encapsulates available funds for a wallet.
type Balance struct {
	Owner  identity.ID
	Amount int64
	AsOf   time.Time
}
