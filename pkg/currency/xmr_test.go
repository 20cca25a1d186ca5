package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXMRToAtomic(t *testing.T) {
	assert.Equal(t, uint64(100_000_000_000), XMRToAtomic(0.1))
	assert.Equal(t, uint64(1_000_000_000_000), XMRToAtomic(1))
	assert.Equal(t, uint64(0), XMRToAtomic(0))
	assert.Equal(t, uint64(0), XMRToAtomic(-1))
}

func TestAtomicToXMR(t *testing.T) {
	assert.InDelta(t, 0.1, AtomicToXMR(100_000_000_000), 1e-12)
	assert.InDelta(t, 1.0, AtomicToXMR(1_000_000_000_000), 1e-12)
}

func TestFormatXMR(t *testing.T) {
	assert.Equal(t, "0.100000000000", FormatXMR(100_000_000_000))
	assert.Equal(t, "0.000000000001", FormatXMR(1))
}
