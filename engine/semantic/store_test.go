package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
)

// --- Mocks ---

type mockPoints struct {
	stored     map[string]*pb.PointStruct
	upsertErr  error
	searchResp *pb.SearchResponse
	searchErr  error
	indexErr   error
	lastSearch *pb.SearchPoints
	lastIndex  *pb.CreateFieldIndexCollection
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if m.stored == nil {
		m.stored = make(map[string]*pb.PointStruct)
	}
	for _, p := range in.GetPoints() {
		m.stored[p.GetId().GetUuid()] = p
	}
	op := uint64(7)
	return &pb.PointsOperationResponse{Result: &pb.UpdateResult{OperationId: &op, Status: pb.UpdateStatus_Completed}}, nil
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.lastSearch = in
	return m.searchResp, m.searchErr
}

func (m *mockPoints) CreateFieldIndex(_ context.Context, in *pb.CreateFieldIndexCollection, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.lastIndex = in
	return &pb.PointsOperationResponse{}, m.indexErr
}

type mockCollections struct {
	listResp  *pb.ListCollectionsResponse
	listErr   error
	createErr error
	created   *pb.CreateCollection
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}

func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = in
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}

func strVal(s string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}} }

func intVal(n int64) *pb.Value { return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}} }

// --- Tests ---

func TestNewWithClients(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "test")
	if err := vs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "test"}},
		},
	}
	pts := &mockPoints{}
	vs := NewWithClients(pts, cols, "test")
	if err := vs.EnsureCollection(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created != nil || pts.lastIndex != nil {
		t.Fatal("existing collection should not be recreated")
	}
}

func TestEnsureCollection_CreatesWithTenantIndex(t *testing.T) {
	cols := &mockCollections{listResp: &pb.ListCollectionsResponse{}}
	pts := &mockPoints{}
	vs := NewWithClients(pts, cols, "test")
	if err := vs.EnsureCollection(context.Background(), 384); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cols.created.GetVectorsConfig().GetParams().GetSize(); got != 384 {
		t.Fatalf("expected size 384, got %d", got)
	}
	if pts.lastIndex.GetFieldName() != domain.KeyTenant {
		t.Fatalf("expected tenant index, got %q", pts.lastIndex.GetFieldName())
	}
	if pts.lastIndex.GetFieldType() != pb.FieldType_FieldTypeKeyword {
		t.Fatalf("expected keyword index, got %v", pts.lastIndex.GetFieldType())
	}
}

func TestEnsureCollection_Errors(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{listErr: errors.New("rpc fail")}, "test")
	if err := vs.EnsureCollection(context.Background(), 4); err == nil {
		t.Fatal("expected list error")
	}

	vs = NewWithClients(&mockPoints{}, &mockCollections{listResp: &pb.ListCollectionsResponse{}, createErr: errors.New("create fail")}, "test")
	if err := vs.EnsureCollection(context.Background(), 4); err == nil {
		t.Fatal("expected create error")
	}

	vs = NewWithClients(&mockPoints{indexErr: errors.New("index fail")}, &mockCollections{listResp: &pb.ListCollectionsResponse{}}, "test")
	if err := vs.EnsureCollection(context.Background(), 4); err == nil {
		t.Fatal("expected index error")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	if PointID("doc:0") != PointID("doc:0") {
		t.Fatal("point id must be deterministic")
	}
	if PointID("doc:0") == PointID("doc:1") {
		t.Fatal("distinct record ids must map to distinct points")
	}
}

func TestUpsert_Empty(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "test")
	if _, err := vs.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts.stored) != 0 {
		t.Fatal("nothing should be written")
	}
}

func TestUpsert_OverwritesSameRecordID(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "test")
	ctx := context.Background()

	first := VectorRecord{ID: "doc-1:0", Embedding: []float32{1, 0}, Payload: map[string]any{domain.KeyText: "old text"}}
	second := VectorRecord{ID: "doc-1:0", Embedding: []float32{0, 1}, Payload: map[string]any{domain.KeyText: "new text"}}

	if _, err := vs.Upsert(ctx, []VectorRecord{first}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	res, err := vs.Upsert(ctx, []VectorRecord{second})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if res.OperationID != 7 {
		t.Fatalf("expected operation id 7, got %d", res.OperationID)
	}

	if len(pts.stored) != 1 {
		t.Fatalf("expected 1 point, got %d", len(pts.stored))
	}
	p := pts.stored[PointID("doc-1:0")]
	if got := p.GetPayload()[domain.KeyText].GetStringValue(); got != "new text" {
		t.Fatalf("expected latest text, got %q", got)
	}
	if got := p.GetPayload()[domain.KeyRecordID].GetStringValue(); got != "doc-1:0" {
		t.Fatalf("expected record id in payload, got %q", got)
	}
}

func TestUpsert_EncodesPayload(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "test")
	c := domain.Chunk{ParentID: "d", Index: 2, Text: "t", Tenant: "A", Source: "s", Tags: []string{"x", "y"}}
	if _, err := vs.Upsert(context.Background(), []VectorRecord{{ID: c.RecordID(), Embedding: []float32{1}, Payload: c.Metadata()}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	payload := pts.stored[PointID("d:2")].GetPayload()
	if payload[domain.KeyChunk].GetIntegerValue() != 2 {
		t.Fatal("chunk index should be an integer value")
	}
	if tags := payload[domain.KeyTags].GetListValue().GetValues(); len(tags) != 2 || tags[1].GetStringValue() != "y" {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestUpsert_Error(t *testing.T) {
	vs := NewWithClients(&mockPoints{upsertErr: errors.New("down")}, &mockCollections{}, "test")
	_, err := vs.Upsert(context.Background(), []VectorRecord{{ID: "a:0", Embedding: []float32{1}}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestQuery_DecodesPayloadAndFilters(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{
					Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID("doc:1")}},
					Score: 0.91,
					Payload: map[string]*pb.Value{
						domain.KeyRecordID: strVal("doc:1"),
						domain.KeyTenant:   strVal("A"),
						domain.KeySource:   strVal("runbook.md"),
						domain.KeyText:     strVal("restart the pod"),
						domain.KeyChunk:    intVal(1),
					},
				},
			},
		},
	}
	vs := NewWithClients(pts, &mockCollections{}, "test")

	results, err := vs.Query(context.Background(), []float32{0.1}, 6, map[string]string{domain.KeyTenant: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.ID != "doc:1" || r.Tenant != "A" || r.Source != "runbook.md" || r.Chunk != 1 || r.Text != "restart the pod" {
		t.Fatalf("unexpected result: %+v", r)
	}

	if pts.lastSearch.GetLimit() != 6 {
		t.Fatalf("expected limit 6, got %d", pts.lastSearch.GetLimit())
	}
	must := pts.lastSearch.GetFilter().GetMust()
	if len(must) != 1 {
		t.Fatalf("expected one filter condition, got %d", len(must))
	}
	field := must[0].GetField()
	if field.GetKey() != domain.KeyTenant || field.GetMatch().GetKeyword() != "A" {
		t.Fatalf("unexpected filter: %v", field)
	}
}

func TestQuery_Error(t *testing.T) {
	vs := NewWithClients(&mockPoints{searchErr: errors.New("timeout")}, &mockCollections{}, "test")
	if _, err := vs.Query(context.Background(), []float32{0.1}, 3, nil); err == nil {
		t.Fatal("expected error")
	}
}
