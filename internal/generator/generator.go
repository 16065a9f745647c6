package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/learnerguy001/Smart-Traffic-main/internal/violation"
)

var (
	sampleLocations = []string{
		"Broadway & 5th Ave", "Main St & Oak Ave", "Highway 101 Mile 45",
		"Park Ave & Center St", "1st Street & Elm Ave",
	}
	samplePlates = []string{
		"DEF-7890", "GHI-3456", "JKL-9012", "MNO-4567", "PQR-8901",
	}
	sampleVehicles = []string{
		"Toyota Camry", "Honda Accord", "Ford F-150", "Chevrolet Malibu", "Nissan Altima",
	}
)

// Generator synthesizes violation records on a timer to drive the live feed.
// Each tick fires with a fixed probability; while paused no ticks fire.
type Generator struct {
	store *violation.Store
	log   zerolog.Logger

	// Interval and Chance may be overridden before Start.
	Interval time.Duration
	Chance   float64

	mu     sync.Mutex
	rnd    *rand.Rand
	paused bool
	stop   context.CancelFunc
	done   chan struct{}
}

func New(store *violation.Store, log zerolog.Logger) *Generator {
	return &Generator{
		store:    store,
		log:      log,
		Interval: 3 * time.Second,
		Chance:   0.3,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SeedRand fixes the random source. Test hook.
func (g *Generator) SeedRand(seed int64) {
	g.mu.Lock()
	g.rnd = rand.New(rand.NewSource(seed))
	g.mu.Unlock()
}

// Start launches the tick loop and returns a stop func tearing the timer
// down. The loop also exits when ctx is cancelled.
func (g *Generator) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	g.stop = cancel
	g.done = make(chan struct{})
	done := g.done
	g.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(g.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.log.Info().Msg("live generator stopped")
				return
			case <-ticker.C:
				g.tick()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Pause suppresses ticks without tearing the timer down.
func (g *Generator) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
	g.log.Info().Msg("live feed paused")
}

// Resume re-enables ticks.
func (g *Generator) Resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	g.log.Info().Msg("live feed resumed")
}

// Live reports whether the generator is currently producing.
func (g *Generator) Live() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.paused
}

func (g *Generator) tick() {
	g.mu.Lock()
	if g.paused {
		g.mu.Unlock()
		return
	}
	fire := g.rnd.Float64() < g.Chance
	var v violation.Violation
	if fire {
		v = g.synthesizeLocked()
	}
	g.mu.Unlock()
	if !fire {
		return
	}
	added := g.store.Add(v)
	g.log.Info().Int64("id", added.ID).Str("plate", added.LicensePlate).Float64("speed", added.Speed).Msg("live violation detected")
}

func (g *Generator) synthesizeLocked() violation.Violation {
	return Sample(g.rnd)
}

// Sample synthesizes one violation from the fixed pools and ranges. The
// caller owns rnd's synchronization.
func Sample(rnd *rand.Rand) violation.Violation {
	photoID := rnd.Intn(900000) + 100000
	return violation.Violation{
		Timestamp:    time.Now().UTC(),
		Location:     sampleLocations[rnd.Intn(len(sampleLocations))],
		Speed:        float64(rnd.Intn(40) + 40),
		SpeedLimit:   float64(rnd.Intn(20) + 25),
		LicensePlate: samplePlates[rnd.Intn(len(samplePlates))],
		Vehicle:      sampleVehicles[rnd.Intn(len(sampleVehicles))],
		ImageURL:     fmt.Sprintf("https://images.pexels.com/photos/%d/pexels-photo-%d.jpeg?auto=compress&cs=tinysrgb&w=600", photoID, photoID),
		Status:       violation.StatusPending,
		Confidence:   0.85 + rnd.Float64()*0.14,
	}
}
