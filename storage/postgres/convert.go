package postgres

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
)

// NUMERIC(20,0) holds the full uint64 range; amounts are read back as text.
func numeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Exp: 0, Valid: true}
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored amount %q: %w", s, err)
	}
	return v, nil
}

func hexAddresses(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

func parseAddresses(raw []string) ([]common.Address, error) {
	out := make([]common.Address, len(raw))
	for i, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid stored address %q", s)
		}
		out[i] = common.HexToAddress(s)
	}
	return out, nil
}

func int64Allocations(allocs []uint64) []int64 {
	out := make([]int64, len(allocs))
	for i, a := range allocs {
		out[i] = int64(a)
	}
	return out
}

func uint64Allocations(raw []int64) []uint64 {
	out := make([]uint64, len(raw))
	for i, a := range raw {
		out[i] = uint64(a)
	}
	return out
}
