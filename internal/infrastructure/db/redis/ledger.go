package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPendingTTL = 7 * 24 * time.Hour

// DeliveryLedger tracks undelivered contract_created events in Redis.
// Key format: contract_created:<contract_id>:<user_id>
type DeliveryLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeliveryLedger wraps client. A non-positive ttl uses a week.
func NewDeliveryLedger(client *redis.Client, ttl time.Duration) *DeliveryLedger {
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &DeliveryLedger{client: client, ttl: ttl}
}

// MarkPending records that userID has yet to see the event.
func (l *DeliveryLedger) MarkPending(ctx context.Context, contractID, userID int64) error {
	if err := l.client.Set(ctx, pendingKey(contractID, userID), "1", l.ttl).Err(); err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	return nil
}

// Claim deletes the pending marker. DEL is atomic, so across any number of
// concurrent connects only one caller sees a deleted key.
func (l *DeliveryLedger) Claim(ctx context.Context, contractID, userID int64) (bool, error) {
	n, err := l.client.Del(ctx, pendingKey(contractID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("claim pending: %w", err)
	}
	return n == 1, nil
}

func pendingKey(contractID, userID int64) string {
	return fmt.Sprintf("contract_created:%d:%d", contractID, userID)
}
