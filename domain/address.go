package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress converts an on-chain address to its canonical
// lowercase hex form. All addresses are normalized before storage or
// comparison so that ledger events and identity links agree.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", InvalidAddressError{Address: address}
	}

	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}
