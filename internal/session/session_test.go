package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"parking_terminal/internal/parking"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestCellSubscriberGetsCurrentValue(t *testing.T) {
	c := NewCell(1)
	ch, cancel := c.Subscribe()
	defer cancel()

	if got := <-ch; got != 1 {
		t.Fatalf("expected current value 1, got %d", got)
	}
}

func TestCellSlowSubscriberSeesLatestOnly(t *testing.T) {
	c := NewCell(0)
	ch, cancel := c.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		c.Set(i)
	}

	if got := <-ch; got != 5 {
		t.Fatalf("expected latest value 5, got %d", got)
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected backlog value %d", v)
	default:
	}
}

func TestCellCancelClosesChannel(t *testing.T) {
	c := NewCell("a")
	ch, cancel := c.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
	c.Set("b")
	if got := c.Get(); got != "b" {
		t.Fatalf("Get = %q", got)
	}
}

func TestCellConcurrentReaders(t *testing.T) {
	c := NewCell(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Get()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		c.Set(i)
	}
	wg.Wait()
	if got := c.Get(); got != 99 {
		t.Fatalf("Get = %d, want 99", got)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	current, err := store.Load()
	if err != nil || current != nil {
		t.Fatalf("Load on missing file = %v, %v", current, err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete on missing file: %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)
	start := time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC)

	want := parking.Session{ID: 7, Name: "Ana", NationalID: "1010", ShiftStart: parking.At(start)}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.ID != 7 || got.Name != "Ana" || got.NationalID != "1010" || !got.ShiftStart.Equal(start) {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file removed, stat err = %v", err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Fatal("expected decode error")
	}
}

type fakeStore struct {
	saved     *parking.Session
	saveErr   error
	deleteErr error
	deleted   bool
}

func (f *fakeStore) Load() (*parking.Session, error) { return f.saved, nil }

func (f *fakeStore) Save(s parking.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &s
	return nil
}

func (f *fakeStore) Delete() error {
	f.deleted = true
	f.saved = nil
	return f.deleteErr
}

func TestManagerLifecycle(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, zap.NewNop())

	if m.LoggedIn() {
		t.Fatal("fresh manager must not be logged in")
	}

	updates, cancel := m.SessionUpdates()
	defer cancel()
	if first := <-updates; first != nil {
		t.Fatalf("expected nil initial session, got %+v", first)
	}

	if err := m.Begin(parking.Session{ID: 3, Name: "Luis"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if store.saved == nil || store.saved.ID != 3 {
		t.Fatal("session must be persisted")
	}
	if got := <-updates; got == nil || got.ID != 3 {
		t.Fatalf("expected published session, got %+v", got)
	}

	m.SetTariffs(parking.TariffTable{"Moto": decimal.NewFromInt(5000)})
	if got := m.Tariffs().Price("moto"); !got.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("moto tariff = %s", got)
	}

	if err := m.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if m.LoggedIn() || !store.deleted {
		t.Fatal("End must clear memory and storage")
	}
	if got := m.Tariffs(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty tariff table, got %v", got)
	}
	if got := <-updates; got != nil {
		t.Fatalf("expected nil after logout, got %+v", got)
	}
}

func TestManagerBeginPersistFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	m := NewManager(store, zap.NewNop())

	if err := m.Begin(parking.Session{ID: 1}); err == nil {
		t.Fatal("expected error")
	}
	if m.LoggedIn() {
		t.Fatal("session must not be published when persisting fails")
	}
}

func TestManagerEndClearsMemoryOnDeleteFailure(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("read-only")}
	m := NewManager(store, zap.NewNop())
	_ = m.Begin(parking.Session{ID: 1})

	if err := m.End(); err == nil {
		t.Fatal("expected delete error")
	}
	if m.LoggedIn() {
		t.Fatal("in-memory session must be cleared")
	}
}

func TestManagerRestore(t *testing.T) {
	store := &fakeStore{saved: &parking.Session{ID: 9, Name: "Marta"}}
	m := NewManager(store, zap.NewNop())

	if err := m.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	current, ok := m.Current()
	if !ok || current.ID != 9 {
		t.Fatalf("Current = %+v, %v", current, ok)
	}
}

func TestTariffAbsentKeyIsZero(t *testing.T) {
	m := NewManager(&fakeStore{}, zap.NewNop())
	if got := m.Tariffs().Price("camion"); !got.IsZero() {
		t.Fatalf("absent tariff = %s, want 0", got)
	}
}
