package jwt

import (
	"sync"
	"testing"
)

var (
	testKeysOnce sync.Once
	testKeys     [2]*KeyPair
	testKeysErr  error
)

// testKeyPairs returns two distinct 2048-bit keys shared by the whole test binary.
func testKeyPairs(tb testing.TB) (*KeyPair, *KeyPair) {
	tb.Helper()
	testKeysOnce.Do(func() {
		for i := range testKeys {
			testKeys[i], testKeysErr = GenerateKeyPairBits(MinKeyBits)
			if testKeysErr != nil {
				return
			}
		}
	})
	if testKeysErr != nil {
		tb.Fatalf("generate test keys: %v", testKeysErr)
	}
	return testKeys[0], testKeys[1]
}
