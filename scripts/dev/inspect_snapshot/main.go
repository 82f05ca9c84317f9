package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/vultisig/payroll-ledger/config"
	"github.com/vultisig/payroll-ledger/storage"
)

var name string

// Usage:
// `go run ./scripts/dev/inspect_snapshot/main.go -name=snapshots/1740830400.json`
func main() {
	flag.StringVar(&name, "name", "", "snapshot object key in the bucket")
	flag.Parse()

	cfg, err := config.ReadConfig("config")
	if err != nil {
		panic(fmt.Errorf("failed to read config: %w", err))
	}
	bs, err := storage.NewBlockStorage(*cfg)
	if err != nil {
		panic(fmt.Errorf("failed to create block storage: %w", err))
	}
	snap, err := bs.GetSnapshot(context.Background(), name)
	if err != nil {
		panic(fmt.Errorf("failed to get snapshot: %w", err))
	}

	fmt.Printf("taken at:   %s\n", snap.TakenAt)
	fmt.Printf("owner:      %s\n", snap.State.Owner.Hex())
	fmt.Printf("oracle:     %s\n", snap.State.Oracle.Hex())
	fmt.Printf("treasury:   %s\n", snap.State.Treasury.Hex())
	fmt.Printf("terminated: %t\n", snap.State.Terminated)
	for _, r := range snap.Rates {
		fmt.Printf("rate %s = %d\n", r.Token.Hex(), r.Rate)
	}
	for _, e := range snap.Employees {
		fmt.Printf("employee %s active=%t yearly=%d tokens=%d\n", e.Address.Hex(), e.Active, e.YearlySalaryUSD, len(e.AllowedTokens))
	}
}
