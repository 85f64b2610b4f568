package optimizer

import (
	"testing"

	"yieldScope/internal/protocol"
)

func TestSynthesizeTokenAddress(t *testing.T) {
	synth := newMockSynth(3)

	known := synth.synthesize(137, "USDC", 137)
	if len(known) != len(mockProtocols) {
		t.Fatalf("expected %d mocks, got %d", len(mockProtocols), len(known))
	}
	usdc, _ := protocol.TokenAddress(137, "USDC")
	for _, o := range known {
		if o.TokenAddress != usdc.Hex() {
			t.Fatalf("%s token mismatch: %s", o.Key(), o.TokenAddress)
		}
	}

	for _, o := range synth.synthesize(137, "FRAX", 137) {
		if o.TokenAddress != "" {
			t.Fatalf("%s: unknown asset must leave token empty, got %s", o.Key(), o.TokenAddress)
		}
	}
}
