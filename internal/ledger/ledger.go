// Package ledger tracks the demo's cash position. It consumes
// transactions.new from the bus, applies each transaction to an in-memory
// account balance, and publishes balance.updated. Nothing is persisted; the
// ledger is rebuilt from the catalog's opening balances on every start.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/catalog"
	"github.com/pulseworks/cashbeat/internal/events"
)

// SourceTag identifies ledger-produced events on the bus.
const SourceTag = "ledger"

// DefaultRecentCap bounds the retained transaction history.
const DefaultRecentCap = 200

// AccountBalance is a point-in-time copy of one account's position.
type AccountBalance struct {
	AccountID    string    `json:"account_id"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	BalanceCents int64     `json:"balance_cents"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type accountState struct {
	name         string
	currency     string
	balanceCents int64
	updatedAt    time.Time
}

// Ledger applies transactions to account balances.
type Ledger struct {
	mu        sync.RWMutex
	accounts  map[string]*accountState
	order     []string
	recent    []events.Transaction // newest first
	recentCap int

	logger *slog.Logger
	subID  string
}

// Options configures a Ledger. Zero values take defaults.
type Options struct {
	RecentCap int
	Logger    *slog.Logger
}

// New seeds a ledger from the catalog's accounts.
func New(accounts []catalog.Account, opts Options) *Ledger {
	if opts.RecentCap <= 0 {
		opts.RecentCap = DefaultRecentCap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	l := &Ledger{
		accounts:  make(map[string]*accountState, len(accounts)),
		recentCap: opts.RecentCap,
		logger:    opts.Logger,
	}
	now := time.Now().UTC()
	for _, a := range accounts {
		l.accounts[a.ID] = &accountState{
			name:         a.Name,
			currency:     a.Currency,
			balanceCents: a.OpeningCents,
			updatedAt:    now,
		}
		l.order = append(l.order, a.ID)
	}
	return l
}

// Attach subscribes the ledger to transactions.new on the bus. The ledger
// publishes balance.updated back onto the same bus after each application.
func (l *Ledger) Attach(b *bus.Bus) error {
	id, err := b.Subscribe(events.TopicTransactionNew, func(ctx context.Context, evt bus.Event) error {
		tx, ok := transactionPayload(evt.Payload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T on %s", evt.Payload, evt.Topic)
		}
		update, err := l.Apply(tx)
		if err != nil {
			return err
		}
		return b.Publish(ctx, events.TopicBalanceUpdated, update, SourceTag)
	}, SourceTag)
	if err != nil {
		return fmt.Errorf("attaching ledger: %w", err)
	}
	l.subID = id
	return nil
}

// Detach removes the bus subscription added by Attach.
func (l *Ledger) Detach(b *bus.Bus) {
	if l.subID != "" {
		b.Unsubscribe(l.subID)
		l.subID = ""
	}
}

// transactionPayload accepts both value and pointer payloads: the generator
// publishes values, the NATS ingest publishes decoded pointers.
func transactionPayload(p any) (events.Transaction, bool) {
	switch v := p.(type) {
	case events.Transaction:
		return v, true
	case *events.Transaction:
		return *v, true
	default:
		return events.Transaction{}, false
	}
}

// Apply updates the account balance for one transaction and returns the
// resulting balance update. Transactions on unknown accounts are rejected.
func (l *Ledger) Apply(tx events.Transaction) (events.BalanceUpdate, error) {
	delta := tx.AmountCents
	if tx.Direction == events.DirectionDebit {
		delta = -delta
	}

	l.mu.Lock()
	state, ok := l.accounts[tx.AccountID]
	if !ok {
		l.mu.Unlock()
		return events.BalanceUpdate{}, fmt.Errorf("unknown account %q", tx.AccountID)
	}
	state.balanceCents += delta
	state.updatedAt = time.Now().UTC()

	l.recent = append([]events.Transaction{tx}, l.recent...)
	if len(l.recent) > l.recentCap {
		l.recent = l.recent[:l.recentCap]
	}

	update := events.BalanceUpdate{
		AccountID:     tx.AccountID,
		AccountName:   state.name,
		BalanceCents:  state.balanceCents,
		DeltaCents:    delta,
		TransactionID: tx.ID,
		At:            state.updatedAt,
	}
	l.mu.Unlock()

	return update, nil
}

// Balances returns every account in catalog order. Copies, never live state.
func (l *Ledger) Balances() []AccountBalance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]AccountBalance, 0, len(l.order))
	for _, id := range l.order {
		s := l.accounts[id]
		out = append(out, AccountBalance{
			AccountID:    id,
			Name:         s.name,
			Currency:     s.currency,
			BalanceCents: s.balanceCents,
			UpdatedAt:    s.updatedAt,
		})
	}
	return out
}

// TotalCents sums all account balances.
func (l *Ledger) TotalCents() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, s := range l.accounts {
		total += s.balanceCents
	}
	return total
}

// Recent returns up to limit retained transactions, newest first.
// limit <= 0 returns everything retained.
func (l *Ledger) Recent(limit int) []events.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]events.Transaction, n)
	copy(out, l.recent[:n])
	return out
}

// NetFlowCents sums the signed deltas of retained transactions newer than
// since. The forecaster uses this as its drift input.
func (l *Ledger) NetFlowCents(since time.Time) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var net int64
	for _, tx := range l.recent {
		if tx.Timestamp.Before(since) {
			continue
		}
		if tx.Direction == events.DirectionDebit {
			net -= tx.AmountCents
		} else {
			net += tx.AmountCents
		}
	}
	return net
}
