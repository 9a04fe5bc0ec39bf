package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/pulseworks/cashbeat/internal/bus"
	"github.com/pulseworks/cashbeat/internal/catalog"
	"github.com/pulseworks/cashbeat/internal/events"
)

func testAccounts() []catalog.Account {
	return []catalog.Account{
		{ID: "acct-1", Name: "Operating", Currency: "USD", OpeningCents: 100_000},
		{ID: "acct-2", Name: "Payroll", Currency: "USD", OpeningCents: 50_000},
	}
}

func tx(account string, cents int64, dir events.Direction) events.Transaction {
	return events.Transaction{
		ID:          "txn-test",
		AccountID:   account,
		AmountCents: cents,
		Currency:    "USD",
		Direction:   dir,
		Merchant:    "Test Vendor",
		Category:    "test",
		Timestamp:   time.Now().UTC(),
	}
}

func TestApply_DebitAndCredit(t *testing.T) {
	l := New(testAccounts(), Options{})

	up, err := l.Apply(tx("acct-1", 10_000, events.DirectionDebit))
	if err != nil {
		t.Fatalf("Apply debit: %v", err)
	}
	if up.BalanceCents != 90_000 || up.DeltaCents != -10_000 {
		t.Errorf("debit update = %+v, want balance 90000 delta -10000", up)
	}

	up, err = l.Apply(tx("acct-1", 5_000, events.DirectionCredit))
	if err != nil {
		t.Fatalf("Apply credit: %v", err)
	}
	if up.BalanceCents != 95_000 || up.DeltaCents != 5_000 {
		t.Errorf("credit update = %+v, want balance 95000 delta 5000", up)
	}
}

func TestApply_UnknownAccount(t *testing.T) {
	l := New(testAccounts(), Options{})
	if _, err := l.Apply(tx("acct-nope", 100, events.DirectionDebit)); err == nil {
		t.Fatal("expected error for unknown account")
	}
}

func TestBalances_CatalogOrderAndCopies(t *testing.T) {
	l := New(testAccounts(), Options{})

	bals := l.Balances()
	if len(bals) != 2 || bals[0].AccountID != "acct-1" || bals[1].AccountID != "acct-2" {
		t.Fatalf("balances = %+v", bals)
	}

	bals[0].BalanceCents = -1
	if l.Balances()[0].BalanceCents != 100_000 {
		t.Error("mutating returned balance affected ledger state")
	}
}

func TestTotalCents(t *testing.T) {
	l := New(testAccounts(), Options{})
	if got := l.TotalCents(); got != 150_000 {
		t.Errorf("TotalCents = %d, want 150000", got)
	}
}

func TestRecent_NewestFirstAndBounded(t *testing.T) {
	l := New(testAccounts(), Options{RecentCap: 3})

	for i := int64(1); i <= 5; i++ {
		if _, err := l.Apply(tx("acct-1", i, events.DirectionDebit)); err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
	}

	recent := l.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("retained = %d, want 3", len(recent))
	}
	if recent[0].AmountCents != 5 || recent[2].AmountCents != 3 {
		t.Errorf("retention order = [%d %d %d], want [5 4 3]",
			recent[0].AmountCents, recent[1].AmountCents, recent[2].AmountCents)
	}

	if got := len(l.Recent(2)); got != 2 {
		t.Errorf("Recent(2) returned %d, want 2", got)
	}
}

func TestNetFlowCents(t *testing.T) {
	l := New(testAccounts(), Options{})

	old := tx("acct-1", 1_000, events.DirectionCredit)
	old.Timestamp = time.Now().UTC().Add(-2 * time.Hour)
	if _, err := l.Apply(old); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := l.Apply(tx("acct-1", 300, events.DirectionCredit)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := l.Apply(tx("acct-2", 100, events.DirectionDebit)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got := l.NetFlowCents(time.Now().UTC().Add(-time.Hour))
	if got != 200 {
		t.Errorf("NetFlowCents = %d, want 200 (old transaction excluded)", got)
	}
}

func TestAttach_AppliesAndRepublishes(t *testing.T) {
	b := bus.New(bus.Options{Delay: bus.NoDelay})
	t.Cleanup(b.Stop)

	l := New(testAccounts(), Options{})
	if err := l.Attach(b); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	var got events.BalanceUpdate
	if _, err := b.Subscribe(events.TopicBalanceUpdated, func(_ context.Context, evt bus.Event) error {
		got = evt.Payload.(events.BalanceUpdate)
		return nil
	}, "test"); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	if err := b.Publish(context.Background(), events.TopicTransactionNew,
		tx("acct-2", 10_000, events.DirectionDebit), "test"); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	if got.AccountID != "acct-2" || got.BalanceCents != 40_000 || got.DeltaCents != -10_000 {
		t.Errorf("balance update = %+v", got)
	}
	if got.AccountName != "Payroll" {
		t.Errorf("AccountName = %q, want Payroll", got.AccountName)
	}

	// Detach stops application of further transactions.
	l.Detach(b)
	if err := b.Publish(context.Background(), events.TopicTransactionNew,
		tx("acct-2", 10_000, events.DirectionDebit), "test"); err != nil {
		t.Fatalf("publishing after detach: %v", err)
	}
	if bal := l.Balances()[1].BalanceCents; bal != 40_000 {
		t.Errorf("balance after detach = %d, want 40000", bal)
	}
}

func TestAttach_PointerPayload(t *testing.T) {
	b := bus.New(bus.Options{Delay: bus.NoDelay})
	t.Cleanup(b.Stop)

	l := New(testAccounts(), Options{})
	if err := l.Attach(b); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	p := tx("acct-1", 1_000, events.DirectionCredit)
	if err := b.Publish(context.Background(), events.TopicTransactionNew, &p, "test"); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if bal := l.Balances()[0].BalanceCents; bal != 101_000 {
		t.Errorf("balance = %d, want 101000", bal)
	}
}
