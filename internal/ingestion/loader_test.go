package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
	"portfolio-montecarlo/internal/storage/memory"
)

// orderValidatingPriceStore wraps a PriceStore and validates ordering in InsertBulk.
type orderValidatingPriceStore struct {
	storage.PriceStore
}

func (s *orderValidatingPriceStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if err := ValidatePriceOrdering(points); err != nil {
		return err
	}
	return s.PriceStore.InsertBulk(ctx, points)
}

func TestLoader_Load_Ordering(t *testing.T) {
	input := `date,asset,close
2024-01-03,MSFT,372
2024-01-02,MSFT,370
2024-01-03,AAPL,184
2024-01-02,AAPL,185
`
	store := &orderValidatingPriceStore{PriceStore: memory.NewPriceStore()}
	loader := NewLoader(LoaderOptions{Store: store})

	n, err := loader.Load(context.Background(), strings.NewReader(input), CSVOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v (Loader must sort before InsertBulk)", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bars loaded, got %d", n)
	}
}

func TestLoader_Load_DuplicateRejection(t *testing.T) {
	input := "date,asset,close\n2024-01-02,AAPL,185\n"
	loader := NewLoader(LoaderOptions{Store: memory.NewPriceStore()})
	ctx := context.Background()

	if _, err := loader.Load(ctx, strings.NewReader(input), CSVOptions{}); err != nil {
		t.Fatalf("First load failed: %v", err)
	}
	_, err := loader.Load(ctx, strings.NewReader(input), CSVOptions{})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestLoader_LoadFile_AssetFromName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsla.csv")
	if err := os.WriteFile(path, []byte("date,close\n2024-01-02,248.4\n2024-01-03,238.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := memory.NewPriceStore()
	loader := NewLoader(LoaderOptions{Store: store})

	n, err := loader.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 bars, got %d", n)
	}

	got, _ := store.GetByAsset(context.Background(), "TSLA")
	if len(got) != 2 {
		t.Errorf("Expected 2 TSLA bars stored, got %d", len(got))
	}
}

func TestLoader_NilStore(t *testing.T) {
	loader := NewLoader(LoaderOptions{})

	n, err := loader.Load(context.Background(), strings.NewReader("date,asset,close\n2024-01-02,AAPL,1\n"), CSVOptions{})
	if err != nil || n != 0 {
		t.Errorf("Expected (0, nil) with no store, got (%d, %v)", n, err)
	}
}

func TestLoader_Merge_SkipsStoredBars(t *testing.T) {
	ctx := context.Background()
	store := &orderValidatingPriceStore{PriceStore: memory.NewPriceStore()}
	loader := NewLoader(LoaderOptions{Store: store})

	first := "date,asset,close\n2024-01-02,AAPL,185\n2024-01-03,AAPL,184\n"
	if _, err := loader.Load(ctx, strings.NewReader(first), CSVOptions{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// one stored bar with a different close, one new bar
	points, err := ReadPriceCSV(strings.NewReader("date,asset,close\n2024-01-03,AAPL,190\n2024-01-04,AAPL,186\n"), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadPriceCSV failed: %v", err)
	}
	inserted, existing, err := loader.Merge(ctx, points)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if inserted != 1 || existing != 1 {
		t.Errorf("Merge() = (%d, %d), want (1, 1)", inserted, existing)
	}

	stored, err := store.GetByAsset(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetByAsset failed: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored %d bars, want 3", len(stored))
	}
	if stored[1].Close != 184 {
		t.Errorf("stored close overwritten: got %v, want 184", stored[1].Close)
	}

	// merging the same bars again is a no-op
	inserted, existing, err = loader.Merge(ctx, points)
	if err != nil || inserted != 0 || existing != 2 {
		t.Errorf("second Merge() = (%d, %d, %v), want (0, 2, nil)", inserted, existing, err)
	}
}
