package adapter

import (
	"context"

	"email-lookup-service/internal/domain/model"
)

// QuotaService answers how many lookups of a kind an owner may still run.
// Balance checking and debiting live in an external billing service; the
// submission flow only enforces "remaining >= batch size".
type QuotaService interface {
	Remaining(ctx context.Context, ownerID string, kind model.JobKind) (int, error)
}
