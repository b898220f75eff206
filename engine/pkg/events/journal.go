// Package events is the append-only event journal. Every state-changing
// operation writes its event inside the same transaction as the state
// change, so the journal and the live tables can never disagree. Off-chain
// indexers page the journal by sequence number; each payload carries enough
// context to reconstruct state without reading live storage.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
)

// Type is the event discriminator.
type Type string

const (
	TypePurchase       Type = "purchase"
	TypeSell           Type = "sell"
	TypeTierSubscribed Type = "tier-subscribed"
	TypeConfigChanged  Type = "config-changed"
)

// Event is one journal row.
type Event struct {
	Seq        int64           `json:"seq"`
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	AssetID    addr.Address    `json:"asset_id,omitempty"`
	Actor      addr.Address    `json:"actor"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// PurchasePayload records a pass buy.
type PurchasePayload struct {
	Buyer       addr.Address `json:"buyer"`
	AssetID     addr.Address `json:"asset_id"`
	Amount      uint64       `json:"amount"`
	UnitPrice   uint64       `json:"unit_price"`
	GrossCost   uint64       `json:"gross_cost"`
	ProtocolFee uint64       `json:"protocol_fee"`
	SubjectFee  uint64       `json:"subject_fee"`
	ReferralFee uint64       `json:"referral_fee"`
	Referrer    addr.Address `json:"referrer,omitempty"`
	Supply      uint64       `json:"supply"`
	Timestamp   time.Time    `json:"timestamp"`
}

// SellPayload records a pass sell.
type SellPayload struct {
	Seller      addr.Address `json:"seller"`
	AssetID     addr.Address `json:"asset_id"`
	Amount      uint64       `json:"amount"`
	UnitPrice   uint64       `json:"unit_price"`
	GrossPayout uint64       `json:"gross_payout"`
	ProtocolFee uint64       `json:"protocol_fee"`
	SubjectFee  uint64       `json:"subject_fee"`
	NetPayout   uint64       `json:"net_payout"`
	Supply      uint64       `json:"supply"`
	Timestamp   time.Time    `json:"timestamp"`
}

// TierSubscribedPayload records a subscription purchase.
type TierSubscribedPayload struct {
	Subscriber  addr.Address `json:"subscriber"`
	AssetID     addr.Address `json:"asset_id"`
	Tier        string       `json:"tier"`
	Duration    string       `json:"duration"`
	Price       uint64       `json:"price"`
	ProtocolFee uint64       `json:"protocol_fee"`
	SubjectFee  uint64       `json:"subject_fee"`
	ReferralFee uint64       `json:"referral_fee"`
	Referrer    addr.Address `json:"referrer,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// ConfigChangedPayload records an admin config mutation with old and new
// values.
type ConfigChangedPayload struct {
	Field     string       `json:"field"`
	Old       any          `json:"old"`
	New       any          `json:"new"`
	UpdatedBy addr.Address `json:"updated_by"`
	Timestamp time.Time    `json:"timestamp"`
}

type JournalConfig struct {
	Logger *slog.Logger
}

func (cfg *JournalConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Journal appends and reads events.
type Journal struct {
	log *slog.Logger
}

func NewJournal(cfg JournalConfig) (*Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Journal{log: cfg.Logger}, nil
}

// Append writes one event inside the caller's transaction.
func (j *Journal) Append(ctx context.Context, q pgdb.Querier, typ Type, assetID, actor addr.Address, payload any, occurredAt time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO events (id, type, asset_id, actor, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), string(typ), string(assetID), string(actor), body, occurredAt)
	if err != nil {
		return fmt.Errorf("failed to append %s event: %w", typ, err)
	}

	j.log.Debug("events: appended", "type", typ, "asset", assetID, "actor", actor)
	return nil
}

// List returns up to limit events with seq greater than afterSeq, in
// sequence order.
func (j *Journal) List(ctx context.Context, q pgdb.Querier, afterSeq int64, limit int) ([]Event, error) {
	rows, err := q.Query(ctx, `
		SELECT seq, id, type, asset_id, actor, payload, occurred_at
		FROM events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ, assetID, actor string
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &assetID, &actor, &e.Payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = Type(typ)
		e.AssetID = addr.Address(assetID)
		e.Actor = addr.Address(actor)
		out = append(out, e)
	}
	return out, rows.Err()
}
