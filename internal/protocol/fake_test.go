package protocol

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var errRPCDown = errors.New("rpc down")

type fakeReader struct {
	responses map[string][]byte
	latest    uint64
	times     map[uint64]uint64
	err       error
	calls     int
}

func newFakeReader() *fakeReader {
	return &fakeReader{responses: make(map[string][]byte), times: make(map[uint64]uint64)}
}

func callKey(to common.Address, data []byte, block *big.Int) string {
	b := "latest"
	if block != nil {
		b = block.String()
	}
	return fmt.Sprintf("%s|%x|%s", to.Hex(), data, b)
}

func (f *fakeReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[callKey(*msg.To, msg.Data, blockNumber)]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return resp, nil
}

func (f *fakeReader) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.latest, nil
}

func (f *fakeReader) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	ts, ok := f.times[number]
	if !ok {
		return 0, fmt.Errorf("unknown block %d", number)
	}
	return ts, nil
}

func (f *fakeReader) source() ReaderSource {
	return ReaderFunc(func(ctx context.Context, chainID uint64) (ChainReader, error) {
		return f, nil
	})
}

// respond registers the encoded outputs of method for a call with args at block.
func (f *fakeReader) respond(t *testing.T, parsed abi.ABI, to common.Address, block *big.Int, method string, args []interface{}, outs ...interface{}) {
	t.Helper()
	data, err := parsed.Pack(method, args...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	resp, err := parsed.Methods[method].Outputs.Pack(outs...)
	if err != nil {
		t.Fatalf("pack outputs %s: %v", method, err)
	}
	f.responses[callKey(to, data, block)] = resp
}

func mustABI(t *testing.T, get func() (abi.ABI, error)) abi.ABI {
	t.Helper()
	parsed, err := get()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func units(v int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}
