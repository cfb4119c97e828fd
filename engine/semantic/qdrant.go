package semantic

import (
	"context"
	"fmt"
	"log/slog"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/YorumAI/yorum-engine/engine/domain"
)

// Mirror persists index snapshots to Qdrant so rebuilt indexes can be
// inspected with Qdrant tooling. Retrieval always runs against the in-memory
// snapshot; mirror failures are logged, never propagated to queries.
type Mirror struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	prefix      string
	log         *slog.Logger
}

// NewMirror connects to Qdrant at the given gRPC address. Collections are
// named <prefix>_v<version>, one per snapshot.
func NewMirror(addr, prefix string, log *slog.Logger) (*Mirror, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Mirror{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		prefix:      prefix,
		log:         log,
	}, nil
}

// Close closes the underlying gRPC connection.
func (m *Mirror) Close() error {
	return m.conn.Close()
}

func (m *Mirror) collectionName(version uint64) string {
	return fmt.Sprintf("%s_v%d", m.prefix, version)
}

// Publish writes a snapshot into its own versioned collection and drops the
// previous version's collection. Best effort: errors are returned for
// logging by the caller but must not fail the rebuild.
func (m *Mirror) Publish(ctx context.Context, ix *Index) error {
	name := m.collectionName(ix.Version)

	if err := m.ensureCollection(ctx, name, ix.Dim); err != nil {
		return err
	}
	if err := m.upsert(ctx, name, ix.Chunks, ix.Vectors); err != nil {
		return err
	}

	if ix.Version > 1 {
		old := m.collectionName(ix.Version - 1)
		if _, err := m.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: old}); err != nil {
			m.log.Warn("qdrant mirror: drop old collection failed",
				"collection", old, "error", err)
		}
	}
	return nil
}

func (m *Mirror) ensureCollection(ctx context.Context, name string, dim int) error {
	list, err := m.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return nil
		}
	}

	_, err = m.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", name, err)
	}
	return nil
}

func (m *Mirror) upsert(ctx context.Context, name string, chunks []domain.Chunk, vectors [][]float32) error {
	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		payload := map[string]*pb.Value{
			"text": {Kind: &pb.Value_StringValue{StringValue: c.Text}},
			"seq":  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.Seq)}},
		}
		for j, id := range c.SourceReviewIDs {
			payload[fmt.Sprintf("review_%d", j)] = &pb.Value{
				Kind: &pb.Value_StringValue{StringValue: id},
			}
		}
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: c.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := m.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points to %s: %w", len(points), name, err)
	}
	return nil
}
