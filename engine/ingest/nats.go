package ingest

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/pkg/natsutil"
)

// SubjectIngest carries JSON-encoded review batches for background indexing.
const SubjectIngest = "reviews.ingest"

// ingestQueue is the queue group name; one worker per batch.
const ingestQueue = "indexers"

// Consume subscribes the builder to review batches published on
// SubjectIngest. Rebuild failures are logged and the batch dropped; the
// previous snapshot stays live.
func Consume(nc *nats.Conn, b *Builder) (*nats.Subscription, error) {
	return natsutil.SubscribeQueue(nc, SubjectIngest, ingestQueue,
		func(ctx context.Context, reviews []domain.Review) {
			if _, err := b.Rebuild(ctx, reviews); err != nil {
				b.log.Warn("review batch rebuild failed",
					"reviews", len(reviews), "error", err)
			}
		})
}
