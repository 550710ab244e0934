package chain

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Entry is one strike row of the options chain. The call/put analytics are
// synthetic demo-mode placeholders, not real market data: the upstream API
// offers no per-strike quote lookup without resolving per-strike instrument
// tokens, so values are drawn from fixed ranges instead.
type Entry struct {
	Strike     float64 `json:"strike"`
	CallOI     int64   `json:"callOI"`
	CallLTP    float64 `json:"callLTP"`
	CallVolume int64   `json:"callVolume"`
	PutOI      int64   `json:"putOI"`
	PutLTP     float64 `json:"putLTP"`
	PutVolume  int64   `json:"putVolume"`
}

// Placeholder analytics ranges.
const (
	oiBase    = 10000
	oiSpan    = 100000
	ltpBase   = 10.0
	ltpSpan   = 200.0
	volumeMax = 50000
)

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() (float64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0, err
	}
	return float64(n.Int64()) / (1 << 53), nil
}

// secureInt63n generates a cryptographically secure random int64 between 0 and n-1
func secureInt63n(n int64) (int64, error) {
	r, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return r.Int64(), nil
}

// synthesizeEntry fills one strike row with placeholder analytics.
func synthesizeEntry(strike float64) (Entry, error) {
	entry := Entry{Strike: strike}

	for _, oi := range []*int64{&entry.CallOI, &entry.PutOI} {
		n, err := secureInt63n(oiSpan)
		if err != nil {
			return Entry{}, err
		}
		*oi = oiBase + n
	}
	for _, ltp := range []*float64{&entry.CallLTP, &entry.PutLTP} {
		f, err := secureFloat64()
		if err != nil {
			return Entry{}, err
		}
		*ltp = ltpBase + f*ltpSpan
	}
	for _, vol := range []*int64{&entry.CallVolume, &entry.PutVolume} {
		n, err := secureInt63n(volumeMax)
		if err != nil {
			return Entry{}, err
		}
		*vol = n
	}

	return entry, nil
}

// BuildLadder generates the full demo-mode chain for an underlying price:
// the strike ladder with one synthesized entry per strike. Entries are
// synthesized concurrently; a strike whose synthesis fails is dropped
// without cancelling its siblings, and an empty ladder is not an error.
func BuildLadder(ctx context.Context, currentPrice float64, symbol string) ([]Entry, error) {
	strikes, err := Strikes(currentPrice, symbol)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		entries = make([]Entry, 0, len(strikes))
	)

	g, _ := errgroup.WithContext(ctx)
	for _, strike := range strikes {
		strike := strike
		g.Go(func() error {
			entry, err := synthesizeEntry(strike)
			if err != nil {
				// Drop this strike, keep the rest.
				return nil
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Strike < entries[j].Strike })
	return entries, nil
}
