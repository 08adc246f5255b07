package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"figurachat/internal/config"
	"figurachat/internal/models"
	"figurachat/internal/redis"
	"figurachat/internal/session"
	"figurachat/internal/storage"
)

// The engine consumes the service through this interface.
var _ session.ConversationLog = (*Service)(nil)

// fakeCache is an in-memory snapshotCache.
type fakeCache struct {
	mu      sync.Mutex
	values  map[string]string
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", redis.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	ctx := context.Background()

	first, order, err := svc.GetOrCreate(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order != nil {
		t.Fatalf("fresh conversation has an order: %+v", order)
	}
	second, _, err := svc.GetOrCreate(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first != second {
		t.Fatalf("conversation ids differ: %d vs %d", first, second)
	}

	if _, _, err := svc.GetOrCreate(ctx, "  "); err == nil {
		t.Fatal("blank user id accepted")
	}
}

func TestSaveMessageAndHistoryOrder(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	ctx := context.Background()

	if err := svc.SaveMessage(ctx, "v1", models.RoleUser, "hola", nil); err != nil {
		t.Fatalf("save user message: %v", err)
	}
	if err := svc.SaveMessage(ctx, "v1", models.RoleAssistant, "bienvenido", nil); err != nil {
		t.Fatalf("save assistant message: %v", err)
	}
	if err := svc.SaveMessage(ctx, "v1", models.RoleUser, "quiero una figura", nil); err != nil {
		t.Fatalf("save second user message: %v", err)
	}

	history, err := svc.History(ctx, "v1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d", len(history))
	}
	if history[0].Content != "hola" || history[2].Content != "quiero una figura" {
		t.Fatalf("history out of order: %q ... %q", history[0].Content, history[2].Content)
	}
	if history[1].Role != models.RoleAssistant {
		t.Fatalf("middle role = %q", history[1].Role)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if err := svc.SaveMessage(ctx, "v1", models.RoleUser, "msg", nil); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	history, err := svc.History(ctx, "v1", 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("history length = %d, want 5", len(history))
	}
}

func TestOrderSnapshotRoundTrip(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	ctx := context.Background()

	order := &models.Order{
		Contact: "Ana, +51 999",
		Head:    "pelo negro",
		Photos:  []models.Photo{{Filename: "a.jpg", Data: "QUJD"}},
	}
	if err := svc.UpdateOrder(ctx, "v1", order); err != nil {
		t.Fatalf("update order: %v", err)
	}

	loaded, err := svc.LatestOrder(ctx, "v1")
	if err != nil {
		t.Fatalf("latest order: %v", err)
	}
	if loaded == nil {
		t.Fatal("snapshot missing")
	}
	if loaded.Contact != order.Contact || loaded.Head != order.Head {
		t.Fatalf("snapshot mismatch: %+v", loaded)
	}
	if len(loaded.Photos) != 1 || loaded.Photos[0].Filename != "a.jpg" {
		t.Fatalf("photos lost: %+v", loaded.Photos)
	}
}

func TestUpdateOrderCreatesConversation(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	ctx := context.Background()

	// No prior GetOrCreate for this visitor.
	if err := svc.UpdateOrder(ctx, "brand-new", &models.Order{Head: "casco"}); err != nil {
		t.Fatalf("update order: %v", err)
	}
	loaded, err := svc.LatestOrder(ctx, "brand-new")
	if err != nil || loaded == nil || loaded.Head != "casco" {
		t.Fatalf("snapshot = %+v, err = %v", loaded, err)
	}
}

func TestLatestOrderUnknownVisitor(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	loaded, err := svc.LatestOrder(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("latest order: %v", err)
	}
	if loaded != nil {
		t.Fatalf("unexpected snapshot: %+v", loaded)
	}
}

func TestUpdateOrderWritesThroughCache(t *testing.T) {
	cache := newFakeCache()
	svc := NewService(newTestDB(t), nil)
	svc.cache = cache
	ctx := context.Background()

	if err := svc.UpdateOrder(ctx, "v1", &models.Order{Head: "gorra azul"}); err != nil {
		t.Fatalf("update order: %v", err)
	}
	if _, ok := cache.values[snapshotKeyPrefix+"v1"]; !ok {
		t.Fatal("snapshot not cached")
	}

	loaded, err := svc.LatestOrder(ctx, "v1")
	if err != nil || loaded == nil || loaded.Head != "gorra azul" {
		t.Fatalf("snapshot = %+v, err = %v", loaded, err)
	}
}

func TestLatestOrderDropsUndecodableCacheEntry(t *testing.T) {
	cache := newFakeCache()
	svc := NewService(newTestDB(t), nil)
	svc.cache = cache
	ctx := context.Background()

	if err := svc.UpdateOrder(ctx, "v1", &models.Order{Head: "casco dorado"}); err != nil {
		t.Fatalf("update order: %v", err)
	}
	key := snapshotKeyPrefix + "v1"
	cache.values[key] = "{not json"

	loaded, err := svc.LatestOrder(ctx, "v1")
	if err != nil {
		t.Fatalf("latest order: %v", err)
	}
	if loaded == nil || loaded.Head != "casco dorado" {
		t.Fatalf("database fallback not used: %+v", loaded)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != key {
		t.Fatalf("bad cache entry not dropped: %v", cache.deleted)
	}
	if _, ok := cache.values[key]; ok {
		t.Fatal("bad cache entry still present")
	}
}

func TestMessageSaveRefreshesSnapshot(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	ctx := context.Background()

	order := &models.Order{Feet: "botas rojas"}
	if err := svc.SaveMessage(ctx, "v1", models.RoleAssistant, "guardado", order); err != nil {
		t.Fatalf("save with snapshot: %v", err)
	}
	loaded, err := svc.LatestOrder(ctx, "v1")
	if err != nil || loaded == nil || loaded.Feet != "botas rojas" {
		t.Fatalf("snapshot = %+v, err = %v", loaded, err)
	}
}
