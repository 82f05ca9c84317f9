package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type addressHolder struct {
	Address string   `validate:"required,eth_address"`
	Tokens  []string `validate:"dive,eth_address"`
}

func TestEthAddress(t *testing.T) {
	testCases := []struct {
		name    string
		in      addressHolder
		wantErr bool
	}{
		{name: "checksummed", in: addressHolder{Address: "0x627306090abaB3A6e1400e9345bC60c78a8BEf57"}},
		{name: "lower case without prefix", in: addressHolder{Address: "627306090abab3a6e1400e9345bc60c78a8bef57"}},
		{name: "tokens", in: addressHolder{Address: "0x627306090abaB3A6e1400e9345bC60c78a8BEf57", Tokens: []string{"0xf17f52151EbEF6C7334FAD080c5704D77216b732"}}},
		{name: "missing", in: addressHolder{}, wantErr: true},
		{name: "short", in: addressHolder{Address: "0x1234"}, wantErr: true},
		{name: "bad token", in: addressHolder{Address: "0x627306090abaB3A6e1400e9345bC60c78a8BEf57", Tokens: []string{"usd"}}, wantErr: true},
	}
	v := NewEchoValidator()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
