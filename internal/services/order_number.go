package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	orderNumberPrefix       = "BG"
	orderNumberSuffixLength = 5
	base36Alphabet          = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// OrderNumberGenerator mints human-readable order numbers of the form
// BG-<timestamp>-<suffix>, where the timestamp is the generation instant in
// milliseconds rendered in base 36 and the suffix is five random base-36
// characters. The timestamp component is forced strictly monotonic within a
// process so two calls in the same millisecond still sort by creation order.
type OrderNumberGenerator struct {
	clock  func() time.Time
	random func(n int) (string, error)

	mu     sync.Mutex
	lastMs int64
}

type OrderNumberGeneratorDeps struct {
	Clock  func() time.Time
	Random func(n int) (string, error)
}

func NewOrderNumberGenerator(deps OrderNumberGeneratorDeps) *OrderNumberGenerator {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	random := deps.Random
	if random == nil {
		random = randomBase36
	}
	return &OrderNumberGenerator{
		clock:  clock,
		random: random,
	}
}

// Next returns a new order number. Numbers are unique per process and
// collisions across processes are limited to two generators minting in the
// same millisecond with the same random suffix.
func (g *OrderNumberGenerator) Next() (string, error) {
	if g == nil {
		return "", errors.New("order number: generator is nil")
	}

	ms := g.clock().UnixMilli()
	g.mu.Lock()
	if ms <= g.lastMs {
		ms = g.lastMs + 1
	}
	g.lastMs = ms
	g.mu.Unlock()

	suffix, err := g.random(orderNumberSuffixLength)
	if err != nil {
		return "", fmt.Errorf("order number: random suffix: %w", err)
	}

	stamp := strings.ToUpper(strconv.FormatInt(ms, 36))
	return orderNumberPrefix + "-" + stamp + "-" + suffix, nil
}

func randomBase36(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	limit := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base36Alphabet[idx.Int64()])
	}
	return sb.String(), nil
}
