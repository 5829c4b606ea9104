package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// SourceFunc adapts a plain function to Source.
type SourceFunc func(n int) int

// Intn calls f(n).
func (f SourceFunc) Intn(n int) int { return f(n) }

func mustPositive(n int) {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
}

// NewCryptoSource returns an unpredictable Source reading from the operating
// system's entropy pool.
func NewCryptoSource() Source {
	r := rand.New(cryptoBits{})
	return SourceFunc(func(n int) int {
		mustPositive(n)
		return r.IntN(n)
	})
}

type cryptoBits struct{}

func (cryptoBits) Uint64() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// NewSeededSource returns a deterministic Source. Equal seeds give equal
// sequences, which makes a world reproducible.
func NewSeededSource(seed int64) Source {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(uint64(seed), 0))
	return SourceFunc(func(n int) int {
		mustPositive(n)
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	})
}

// FixedSource replays Values in order, wrapping around, each reduced modulo
// n. Tests use it to script exact rolls.
type FixedSource struct {
	mu     sync.Mutex
	Values []int
	next   int
}

// Intn returns the next scripted value modulo n.
func (f *FixedSource) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return ((v % n) + n) % n
}
