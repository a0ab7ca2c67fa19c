package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/deliverycart/pkg/errors"
	"github.com/angelmondragon/deliverycart/pkg/redis"
	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu    sync.Mutex
	data  map[string]string
	ttls  map[string]time.Duration
	err   error
	delay time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type prefixKeyer struct{}

func (prefixKeyer) CartKey(sessionID string) string { return "cart:" + sessionID }

func (prefixKeyer) LockKey(sessionID, name string) string { return "lock:" + sessionID + ":" + name }

func newTestService(t *testing.T) (Service, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	repo, err := newRedisRepository(store, prefixKeyer{}, time.Hour)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func sampleItem() LineItem {
	return LineItem{
		ProductID: 1,
		Name:      "Burger",
		UnitPrice: decimal.RequireFromString("8.00"),
		VendorID:  10,
	}
}

func TestServiceAddItemPersistsWithTTL(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", sampleItem(), 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	c, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Len() != 1 || c.Lines()[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", c.Lines())
	}
	if store.ttls["cart:s1"] != time.Hour {
		t.Fatalf("expected sliding ttl, got %s", store.ttls["cart:s1"])
	}
}

func TestServiceSessionsAreIsolated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", sampleItem(), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	other, err := svc.Get(ctx, "s2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !other.IsEmpty() {
		t.Fatalf("expected empty cart for other session")
	}
}

func TestServiceRejectsInvalidItem(t *testing.T) {
	svc, store := newTestService(t)
	item := sampleItem()
	item.VendorID = 0

	_, err := svc.AddItem(context.Background(), "s1", item, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.data) != 0 {
		t.Fatal("invalid item must not be stored")
	}
}

func TestServiceRemoveToEmptyDeletesKey(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	item := sampleItem()

	if _, err := svc.AddItem(ctx, "s1", item, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	c, err := svc.RemoveItem(ctx, "s1", item.ProductID, None(), None())
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
	if _, ok := store.data["cart:s1"]; ok {
		t.Fatal("empty cart should not be stored")
	}
}

func TestServiceClearVendorAndAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := sampleItem()
	b := sampleItem()
	b.ProductID = 2
	b.VendorID = 20

	for _, item := range []LineItem{a, b} {
		if _, err := svc.AddItem(ctx, "s1", item, 1); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	c, err := svc.ClearVendor(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("clear vendor: %v", err)
	}
	if c.Len() != 1 || c.Lines()[0].VendorID != 20 {
		t.Fatalf("unexpected cart after vendor clear %+v", c.Lines())
	}
	if err := svc.ClearAll(ctx, "s1"); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	c, _ = svc.Get(ctx, "s1")
	if !c.IsEmpty() {
		t.Fatal("expected empty cart after clear all")
	}
}

func TestServiceApplyFailureLeavesCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "s1", sampleItem(), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	boom := errors.New("boom")
	_, err := svc.Apply(ctx, "s1", func(c *Cart) error {
		c.ClearAll()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	c, _ := svc.Get(ctx, "s1")
	if c.Len() != 1 {
		t.Fatal("failed mutation must not be saved")
	}
}

func TestServiceConcurrentAddsAccumulate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	const adds = 40

	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, "s1", sampleItem(), 1); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	c, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := c.Lines()[0].Quantity; got != adds {
		t.Fatalf("expected quantity %d, got %d", adds, got)
	}
	if n := svc.(*service).locks.size(); n != 0 {
		t.Fatalf("expected session locks released, %d remain", n)
	}
}

func TestServiceStoreErrorIsDependency(t *testing.T) {
	svc, store := newTestService(t)
	store.err = errors.New("connection refused")

	_, err := svc.Get(context.Background(), "s1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestServiceRequiresSession(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), " ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceReplicasShareOneStore(t *testing.T) {
	store := newMemoryStore()
	store.delay = time.Millisecond
	ctx := context.Background()

	newReplica := func() Service {
		repo, err := newRedisRepository(store, prefixKeyer{}, time.Hour)
		if err != nil {
			t.Fatalf("new repo: %v", err)
		}
		lock, err := newRedisSessionLock(store, prefixKeyer{}, time.Minute, 30*time.Second, time.Millisecond)
		if err != nil {
			t.Fatalf("new lock: %v", err)
		}
		svc, err := NewService(repo, lock)
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		return svc
	}
	replicas := []Service{newReplica(), newReplica()}
	const addsPerReplica = 50

	var wg sync.WaitGroup
	for _, svc := range replicas {
		for i := 0; i < addsPerReplica; i++ {
			wg.Add(1)
			go func(svc Service) {
				defer wg.Done()
				if _, err := svc.AddItem(ctx, "s1", sampleItem(), 1); err != nil {
					t.Errorf("add: %v", err)
				}
			}(svc)
		}
	}
	wg.Wait()

	c, err := replicas[0].Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := addsPerReplica * len(replicas)
	if got := c.Lines()[0].Quantity; got != want {
		t.Fatalf("expected quantity %d, got %d", want, got)
	}
	if _, err := store.Get(ctx, "lock:s1:cart"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected cart lock released, got %v", err)
	}
}

func TestServiceClearAllWaitsForSharedLock(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	repo, err := newRedisRepository(store, prefixKeyer{}, time.Hour)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	lock, err := newRedisSessionLock(store, prefixKeyer{}, time.Minute, 20*time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	svc, err := NewService(repo, lock)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.AddItem(ctx, "s1", sampleItem(), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	store.data["lock:s1:cart"] = "other-replica"

	err = svc.ClearAll(ctx, "s1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict while another replica holds the lock, got %v", err)
	}
	if _, ok := store.data["cart:s1"]; !ok {
		t.Fatal("cart must survive a clear that never got the lock")
	}
}
