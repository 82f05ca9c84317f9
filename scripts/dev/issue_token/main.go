package main

import (
	"flag"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/payroll-ledger/config"
	"github.com/vultisig/payroll-ledger/service"
)

var identity string
var secret string

// Usage:
// `go run ./scripts/dev/issue_token/main.go -id=0x627306090abaB3A6e1400e9345bC60c78a8BEf57`
func main() {
	flag.StringVar(&identity, "id", "", "caller address the token is issued to")
	flag.StringVar(&secret, "secret", "", "jwt secret, defaults to server.jwt_secret from config")
	flag.Parse()

	if !common.IsHexAddress(identity) {
		panic(fmt.Errorf("id %q is not an address", identity))
	}
	if secret == "" {
		cfg, err := config.ReadConfig("config")
		if err != nil {
			panic(fmt.Errorf("failed to read config: %w", err))
		}
		secret = cfg.Server.JWTSecret
	}

	token, err := service.NewAuthService(secret).GenerateToken(common.HexToAddress(identity))
	if err != nil {
		panic(fmt.Errorf("failed to generate token: %w", err))
	}
	fmt.Println(token)
}
