// Package qdrant provides a vector index backed by Qdrant over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"sync"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/kbassist/internal/adapters/driven/vector"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

// Payload field names.
const (
	fieldDocumentID = "document_id"
	fieldChunkID    = "chunk_id"
	fieldContent    = "content"
	fieldMetadata   = "metadata"
)

// DefaultTimeout bounds each gRPC call.
const DefaultTimeout = 10 * time.Second

// Config holds Qdrant connection settings.
type Config struct {
	Host       string
	Port       int
	Collection string
	Timeout    time.Duration
}

// Index stores chunk vectors as Qdrant points with cosine distance.
type Index struct {
	cfg Config

	mu          sync.Mutex
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	dimension   int
}

// New creates an index. No connection is made until Connect or the first
// operation.
func New(cfg Config) *Index {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{cfg: cfg}
}

// newWithClients creates an index over existing clients.
func newWithClients(cfg Config, points pb.PointsClient, collections pb.CollectionsClient) *Index {
	idx := New(cfg)
	idx.points = points
	idx.collections = collections
	return idx
}

// Connect creates the gRPC client once. It is safe to call repeatedly.
func (i *Index) Connect(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.connectLocked()
}

func (i *Index) connectLocked() error {
	if i.points != nil {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", i.cfg.Host, i.cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return vector.Unavailable("qdrant connect", err)
	}
	i.conn = conn
	i.points = pb.NewPointsClient(conn)
	i.collections = pb.NewCollectionsClient(conn)
	logger.Debug("qdrant client for %s", addr)
	return nil
}

func (i *Index) clients() (pb.PointsClient, pb.CollectionsClient, int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.connectLocked(); err != nil {
		return nil, nil, 0, err
	}
	return i.points, i.collections, i.dimension, nil
}

// EnsureCollection creates the collection with cosine distance when it
// does not exist, and checks its vector size when it does.
func (i *Index) EnsureCollection(ctx context.Context, dimension int) error {
	_, collections, _, err := i.clients()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	exists, err := collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: i.cfg.Collection})
	if err != nil {
		return vector.Unavailable("qdrant collection exists", err)
	}

	if !exists.GetResult().GetExists() {
		_, err = collections.Create(ctx, &pb.CreateCollection{
			CollectionName: i.cfg.Collection,
			VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
				Size:     uint64(dimension), // #nosec G115 -- dimension comes from the embedding model
				Distance: pb.Distance_Cosine,
			}}},
		})
		if err != nil {
			return vector.Unavailable("qdrant create collection", err)
		}
		logger.Info("created qdrant collection %s (dimension %d)", i.cfg.Collection, dimension)
	} else {
		info, err := collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: i.cfg.Collection})
		if err != nil {
			return vector.Unavailable("qdrant collection info", err)
		}
		size := int(info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()) // #nosec G115
		if size != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, want %d",
				domain.ErrIndexUnavailable, i.cfg.Collection, size, dimension)
		}
	}

	i.mu.Lock()
	i.dimension = dimension
	i.mu.Unlock()
	return nil
}

// Insert upserts a batch and waits until it is applied.
func (i *Index) Insert(ctx context.Context, documentID int64, chunks []string, embeddings [][]float32, metadata []string) error {
	points, _, dimension, err := i.clients()
	if err != nil {
		return err
	}
	if dimension == 0 {
		return fmt.Errorf("%w: collection %q not ensured", domain.ErrIndexUnavailable, i.cfg.Collection)
	}

	records, err := vector.Records(documentID, chunks, embeddings, metadata, dimension)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, len(records))
	for n, r := range records {
		structs[n] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Embedding}}},
			Payload: map[string]*pb.Value{
				fieldDocumentID: {Kind: &pb.Value_IntegerValue{IntegerValue: r.DocumentID}},
				fieldChunkID:    {Kind: &pb.Value_IntegerValue{IntegerValue: int64(r.ChunkID)}},
				fieldContent:    {Kind: &pb.Value_StringValue{StringValue: r.Content}},
				fieldMetadata:   {Kind: &pb.Value_StringValue{StringValue: r.Metadata}},
			},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	wait := true
	if _, err := points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: i.cfg.Collection,
		Wait:           &wait,
		Points:         structs,
	}); err != nil {
		return vector.Unavailable("qdrant upsert", err)
	}
	return nil
}

// Search returns the nearest points scoring at least threshold.
func (i *Index) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]domain.VectorHit, error) {
	points, _, _, err := i.clients()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.VectorHit{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	floor := float32(threshold)
	resp, err := points.Search(ctx, &pb.SearchPoints{
		CollectionName: i.cfg.Collection,
		Vector:         query,
		Limit:          uint64(limit), // #nosec G115 -- limit > 0
		ScoreThreshold: &floor,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, vector.Unavailable("qdrant search", err)
	}

	hits := make([]domain.VectorHit, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		p := pt.GetPayload()
		hits = append(hits, domain.VectorHit{
			VectorRecord: domain.VectorRecord{
				ID:         pt.GetId().GetUuid(),
				DocumentID: p[fieldDocumentID].GetIntegerValue(),
				ChunkID:    int(p[fieldChunkID].GetIntegerValue()),
				Content:    p[fieldContent].GetStringValue(),
				Metadata:   p[fieldMetadata].GetStringValue(),
			},
			Score: float64(pt.GetScore()),
		})
	}
	return vector.Rank(hits, limit, threshold), nil
}

// DeleteByDocument removes every point whose document_id matches.
func (i *Index) DeleteByDocument(ctx context.Context, documentID int64) error {
	points, _, _, err := i.clients()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	wait := true
	_, err = points.Delete(ctx, &pb.DeletePoints{
		CollectionName: i.cfg.Collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: documentFilter(documentID)}},
	})
	if err != nil {
		return vector.Unavailable("qdrant delete", err)
	}
	return nil
}

func documentFilter(documentID int64) *pb.Filter {
	return &pb.Filter{Must: []*pb.Condition{{
		ConditionOneOf: &pb.Condition_Field{Field: &pb.FieldCondition{
			Key:   fieldDocumentID,
			Match: &pb.Match{MatchValue: &pb.Match_Integer{Integer: documentID}},
		}},
	}}}
}

// Stats reports the collection size.
func (i *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats := domain.IndexStats{Backend: "qdrant", Collection: i.cfg.Collection}
	_, collections, _, err := i.clients()
	if err != nil {
		return stats, err
	}
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	info, err := collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: i.cfg.Collection})
	if err != nil {
		return stats, vector.Unavailable("qdrant collection info", err)
	}
	result := info.GetResult()
	stats.Dimension = int(result.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()) // #nosec G115
	stats.TotalVectors = int64(result.GetPointsCount())                                            // #nosec G115
	return stats, nil
}

// Close closes the gRPC connection.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.conn == nil {
		return nil
	}
	err := i.conn.Close()
	i.conn = nil
	i.points = nil
	i.collections = nil
	return err
}
