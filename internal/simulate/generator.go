// Package simulate drives the bus with fabricated traffic: randomized
// transaction emissions and occasional anomaly alerts. It is a pure producer
// against the dispatcher contract, so a real event source (e.g. the NATS
// ingest) can replace it without touching the bus.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/catalog"
	"github.com/pulseworks/cashbeat/internal/events"
	"github.com/pulseworks/cashbeat/internal/idgen"
)

// SourceTag identifies generator-produced events on the bus.
const SourceTag = "load-generator"

// Publisher is the slice of the bus the generator needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, sourceTag string, opts ...bus.PublishOption) error
}

// Config controls emission cadence. Zero values take the documented defaults.
type Config struct {
	TxIntervalMin      time.Duration // default 8s
	TxIntervalMax      time.Duration // default 15s
	AnomalyIntervalMin time.Duration // default 30s
	AnomalyIntervalMax time.Duration // default 60s
	AnomalyChance      float64       // default 0.3
	Rand               *rand.Rand    // optional seeded source for determinism
	Logger             *slog.Logger
}

// Generator periodically synthesizes transactions and anomalies and feeds
// them into the dispatcher.
type Generator struct {
	cat    *catalog.Catalog
	pub    Publisher
	cfg    Config
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a generator. Call Start to begin emitting and Stop to cancel
// and join both emission loops.
func New(cat *catalog.Catalog, pub Publisher, cfg Config) *Generator {
	if cfg.TxIntervalMin <= 0 {
		cfg.TxIntervalMin = 8 * time.Second
	}
	if cfg.TxIntervalMax <= 0 {
		cfg.TxIntervalMax = 15 * time.Second
	}
	if cfg.AnomalyIntervalMin <= 0 {
		cfg.AnomalyIntervalMin = 30 * time.Second
	}
	if cfg.AnomalyIntervalMax <= 0 {
		cfg.AnomalyIntervalMax = 60 * time.Second
	}
	if cfg.AnomalyChance <= 0 {
		cfg.AnomalyChance = 0.3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		cat:    cat,
		pub:    pub,
		cfg:    cfg,
		logger: cfg.Logger,
		rng:    rng,
	}
}

// Start launches the transaction and anomaly emission loops.
func (g *Generator) Start() {
	if g.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		g.emitLoop(ctx, g.cfg.TxIntervalMin, g.cfg.TxIntervalMax, g.emitTransaction)
	}()
	go func() {
		defer g.wg.Done()
		g.emitLoop(ctx, g.cfg.AnomalyIntervalMin, g.cfg.AnomalyIntervalMax, g.maybeEmitAnomaly)
	}()

	g.logger.Info("load generator started",
		"tx_interval", fmt.Sprintf("%s-%s", g.cfg.TxIntervalMin, g.cfg.TxIntervalMax),
		"anomaly_interval", fmt.Sprintf("%s-%s", g.cfg.AnomalyIntervalMin, g.cfg.AnomalyIntervalMax))
}

// Stop cancels both loops and waits for in-flight emissions to finish.
func (g *Generator) Stop() {
	if g.cancel != nil {
		g.cancel()
		g.wg.Wait()
		g.cancel = nil
		g.logger.Info("load generator stopped")
	}
}

// emitLoop fires emit on a freshly randomized interval each cycle.
func (g *Generator) emitLoop(ctx context.Context, min, max time.Duration, emit func(context.Context) error) {
	for {
		timer := time.NewTimer(g.randomInterval(min, max))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := emit(ctx); err != nil && ctx.Err() == nil {
				g.logger.Warn("emission failed", "error", err)
			}
		}
	}
}

func (g *Generator) randomInterval(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(g.randInt63n(int64(max-min)+1))
}

func (g *Generator) randInt63n(n int64) int64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Int63n(n)
}

func (g *Generator) randFloat64() float64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Float64()
}

// emitTransaction synthesizes one transaction and publishes it.
func (g *Generator) emitTransaction(ctx context.Context) error {
	tx, err := g.newTransaction(time.Now().UTC())
	if err != nil {
		return err
	}
	return g.pub.Publish(ctx, events.TopicTransactionNew, tx, SourceTag)
}

// newTransaction draws account, merchant, amount, and a business-hours
// weighted timestamp from the catalog pools.
func (g *Generator) newTransaction(now time.Time) (events.Transaction, error) {
	id, err := idgen.WithPrefix("txn-")
	if err != nil {
		return events.Transaction{}, err
	}

	acct := g.cat.Accounts[g.randInt63n(int64(len(g.cat.Accounts)))]
	m := g.pickMerchant()

	amount := m.MinCents
	if span := m.MaxCents - m.MinCents; span > 0 {
		amount += g.randInt63n(span + 1)
	}
	dir := events.DirectionDebit
	if m.Credit {
		dir = events.DirectionCredit
	}

	return events.Transaction{
		ID:          id,
		AccountID:   acct.ID,
		AmountCents: amount,
		Currency:    acct.Currency,
		Direction:   dir,
		Merchant:    m.Name,
		Category:    m.Category,
		Timestamp:   g.weightedTimestamp(now),
	}, nil
}

// pickMerchant selects from the catalog pool proportionally to weight.
func (g *Generator) pickMerchant() catalog.Merchant {
	target := g.randInt63n(int64(g.cat.TotalWeight()))
	for _, m := range g.cat.Merchants {
		target -= int64(m.Weight)
		if target < 0 {
			return m
		}
	}
	return g.cat.Merchants[len(g.cat.Merchants)-1]
}

// weightedTimestamp places the transaction on today's clock: 70% during
// business hours (9-17), 20% early/late, 10% anywhere in the 24h day.
func (g *Generator) weightedTimestamp(now time.Time) time.Time {
	var hour int
	switch p := g.randFloat64(); {
	case p < 0.7:
		hour = 9 + int(g.randInt63n(8)) // 9..16
	case p < 0.9:
		// Early morning or evening: 0..8 and 17..23 (15 candidate hours).
		h := int(g.randInt63n(15))
		if h < 9 {
			hour = h
		} else {
			hour = h + 8 // 9..14 -> 17..22
		}
	default:
		hour = int(g.randInt63n(24))
	}
	minute := int(g.randInt63n(60))
	second := int(g.randInt63n(60))
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, now.Location())
}

// maybeEmitAnomaly publishes an anomaly with probability AnomalyChance.
func (g *Generator) maybeEmitAnomaly(ctx context.Context) error {
	if g.randFloat64() >= g.cfg.AnomalyChance {
		return nil
	}
	a, err := g.newAnomaly(time.Now().UTC())
	if err != nil {
		return err
	}
	return g.pub.Publish(ctx, events.TopicAnomalyDetected, a, SourceTag)
}

// archetypes maps each anomaly type to its fixed severity and description template.
var archetypes = []struct {
	typ      events.AnomalyType
	severity events.Severity
	describe func(merchant string, cents int64) string
}{
	{
		typ:      events.AnomalyDuplicatePayment,
		severity: events.SeverityHigh,
		describe: func(m string, c int64) string {
			return fmt.Sprintf("Two payments of $%.2f to %s within 90 seconds", float64(c)/100, m)
		},
	},
	{
		typ:      events.AnomalySuspiciousAmount,
		severity: events.SeverityCritical,
		describe: func(m string, c int64) string {
			return fmt.Sprintf("Payment of $%.2f to %s is 6x the category average", float64(c)/100, m)
		},
	},
	{
		typ:      events.AnomalyUnusualTiming,
		severity: events.SeverityMedium,
		describe: func(m string, c int64) string {
			return fmt.Sprintf("Payment of $%.2f to %s initiated outside business hours", float64(c)/100, m)
		},
	},
	{
		typ:      events.AnomalyFrequencyStacking,
		severity: events.SeverityLow,
		describe: func(m string, c int64) string {
			return fmt.Sprintf("Five charges from %s in the last hour (typical: one per week)", m)
		},
	},
}

// newAnomaly synthesizes one of the four archetypes.
func (g *Generator) newAnomaly(now time.Time) (events.Anomaly, error) {
	id, err := idgen.WithPrefix("anom-")
	if err != nil {
		return events.Anomaly{}, err
	}

	arch := archetypes[g.randInt63n(int64(len(archetypes)))]
	acct := g.cat.Accounts[g.randInt63n(int64(len(g.cat.Accounts)))]
	m := g.pickMerchant()

	amount := m.MinCents
	if span := m.MaxCents - m.MinCents; span > 0 {
		amount += g.randInt63n(span + 1)
	}

	return events.Anomaly{
		ID:          id,
		Type:        arch.typ,
		Severity:    arch.severity,
		Description: arch.describe(m.Name, amount),
		AccountID:   acct.ID,
		AmountCents: amount,
		DetectedAt:  now,
	}, nil
}
