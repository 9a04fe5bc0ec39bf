// Package events defines the closed topic namespace of the cashbeat bus and
// one payload type per topic. Producers and consumers agree on these
// constants; the payload shape for each topic is statically known.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event topic constants
const (
	TopicTransactionNew  = "transactions.new"
	TopicAnomalyDetected = "alerts.anomaly"
	TopicForecastUpdated = "forecast.updated"
	TopicBalanceUpdated  = "balance.updated"
)

// Topics lists every topic in registration-friendly order.
var Topics = []string{
	TopicTransactionNew,
	TopicAnomalyDetected,
	TopicForecastUpdated,
	TopicBalanceUpdated,
}

// Payload is implemented by every event payload type. The returned topic is
// the only one the payload may be published on.
type Payload interface {
	EventTopic() string
}

// Direction of money movement relative to the account.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Transaction is the payload for TopicTransactionNew.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Direction   Direction `json:"direction"`
	Merchant    string    `json:"merchant"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
}

func (Transaction) EventTopic() string { return TopicTransactionNew }

// AnomalyType enumerates the four anomaly archetypes the detector fakes.
type AnomalyType string

const (
	AnomalyDuplicatePayment  AnomalyType = "duplicate-payment"
	AnomalySuspiciousAmount  AnomalyType = "suspicious-amount"
	AnomalyUnusualTiming     AnomalyType = "unusual-timing"
	AnomalyFrequencyStacking AnomalyType = "frequency-stacking"
)

// Severity of an anomaly. Each archetype maps to a fixed severity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Anomaly is the payload for TopicAnomalyDetected.
type Anomaly struct {
	ID          string      `json:"id"`
	Type        AnomalyType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	AccountID   string      `json:"account_id"`
	AmountCents int64       `json:"amount_cents,omitempty"`
	DetectedAt  time.Time   `json:"detected_at"`
}

func (Anomaly) EventTopic() string { return TopicAnomalyDetected }

// BalanceUpdate is the payload for TopicBalanceUpdated, emitted by the ledger
// after it applies a transaction.
type BalanceUpdate struct {
	AccountID     string    `json:"account_id"`
	AccountName   string    `json:"account_name"`
	BalanceCents  int64     `json:"balance_cents"`
	DeltaCents    int64     `json:"delta_cents"`
	TransactionID string    `json:"transaction_id"`
	At            time.Time `json:"at"`
}

func (BalanceUpdate) EventTopic() string { return TopicBalanceUpdated }

// ForecastPoint is a single projected day in a forecast.
type ForecastPoint struct {
	Date           time.Time `json:"date"`
	ProjectedCents int64     `json:"projected_cents"`
	ConfidencePct  float64   `json:"confidence_pct"`
}

// ForecastUpdate is the payload for TopicForecastUpdated.
type ForecastUpdate struct {
	GeneratedAt time.Time       `json:"generated_at"`
	HorizonDays int             `json:"horizon_days"`
	Points      []ForecastPoint `json:"points"`
}

func (ForecastUpdate) EventTopic() string { return TopicForecastUpdated }

// DecodePayload unmarshals raw JSON into the payload type registered for the
// topic. Unknown topics are an error: the namespace is closed.
func DecodePayload(topic string, data []byte) (Payload, error) {
	var p Payload
	switch topic {
	case TopicTransactionNew:
		p = &Transaction{}
	case TopicAnomalyDetected:
		p = &Anomaly{}
	case TopicBalanceUpdated:
		p = &BalanceUpdate{}
	case TopicForecastUpdated:
		p = &ForecastUpdate{}
	default:
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", topic, err)
	}
	return p, nil
}

// Publisher is the interface for mirroring bus events to an external system.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
