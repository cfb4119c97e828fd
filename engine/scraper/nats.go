package scraper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/YorumAI/yorum-engine/engine/domain"
	"github.com/YorumAI/yorum-engine/pkg/natsutil"
)

// SubjectFetch is the request/reply subject remote scraping workers listen on.
const SubjectFetch = "reviews.fetch"

// fetchReply is the wire shape of a remote fetch response.
type fetchReply struct {
	Reviews []domain.Review `json:"reviews"`
	Error   string          `json:"error,omitempty"`
}

// NATSFetcher delegates review fetching to a remote worker over NATS
// request/reply. Useful when scraping runs in a separate process with its
// own IP pool.
type NATSFetcher struct {
	nc *nats.Conn
}

// NewNATSFetcher creates a fetcher bound to the given connection.
func NewNATSFetcher(nc *nats.Conn) *NATSFetcher {
	return &NATSFetcher{nc: nc}
}

// FetchReviews forwards the request and waits for the worker's reply within
// the context deadline.
func (f *NATSFetcher) FetchReviews(ctx context.Context, req FetchRequest) ([]domain.Review, error) {
	reply, err := natsutil.Request[FetchRequest, fetchReply](ctx, f.nc, SubjectFetch, req)
	if err != nil {
		return nil, domain.NewCollaboratorError("fetch_reviews", fmt.Errorf("nats request: %w", err))
	}
	if reply.Error != "" {
		return nil, domain.NewCollaboratorError("fetch_reviews", fmt.Errorf("remote scraper: %s", reply.Error))
	}
	return reply.Reviews, nil
}

// Serve registers a local fetcher registry as the remote worker side of the
// request/reply pair. Each request is answered with the reviews or an error
// string the requester can surface.
func Serve(nc *nats.Conn, reg *Registry) (*nats.Subscription, error) {
	return nc.Subscribe(SubjectFetch, func(msg *nats.Msg) {
		var req FetchRequest
		reply := fetchReply{}
		if err := unmarshalMsg(msg.Data, &req); err != nil {
			reply.Error = err.Error()
			respond(msg, reply)
			return
		}

		fetcher, err := reg.Lookup(req.SiteKey)
		if err != nil {
			reply.Error = err.Error()
			respond(msg, reply)
			return
		}

		reviews, err := fetcher.FetchReviews(context.Background(), req)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Reviews = reviews
		}
		respond(msg, reply)
	})
}

func unmarshalMsg(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("scraper: decode request: %w", err)
	}
	return nil
}

func respond(msg *nats.Msg, reply fetchReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	msg.Respond(data)
}
