package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/stylevec/internal/domain"
	"github.com/kailas-cloud/stylevec/internal/domain/product"
	"github.com/kailas-cloud/stylevec/internal/domain/query"
	"github.com/kailas-cloud/stylevec/internal/domain/search/filter"
	"github.com/kailas-cloud/stylevec/internal/domain/search/result"
)

// --- Mocks ---

type mockRepo struct {
	textResults  []result.Summary
	textErr      error
	imageResults []result.Summary
	imageErr     error

	textCalled    bool
	imageCalled   bool
	lastPredicate filter.Predicate
	lastK         int
	lastExcludeID string
}

func (m *mockRepo) SearchText(
	_ context.Context, _ []float32, pred filter.Predicate, k int,
) ([]result.Summary, error) {
	m.textCalled = true
	m.lastPredicate = pred
	m.lastK = k
	return m.textResults, m.textErr
}

func (m *mockRepo) SearchImage(
	_ context.Context, _ []float32, k int, excludeID string,
) ([]result.Summary, error) {
	m.imageCalled = true
	m.lastK = k
	m.lastExcludeID = excludeID
	return m.imageResults, m.imageErr
}

type mockProducts struct {
	rec product.Record
	err error
}

func (m *mockProducts) Get(_ context.Context, _ string) (product.Record, error) {
	return m.rec, m.err
}

type mockInterpreter struct {
	analysis query.Analysis
	called   bool
}

func (m *mockInterpreter) Interpret(_ context.Context, rawQuery string) query.Analysis {
	m.called = true
	if m.analysis.RefinedQuery == "" {
		return query.Analysis{RefinedQuery: rawQuery}
	}
	return m.analysis
}

type mockTextEmbedder struct {
	vec    []float32
	err    error
	called bool
	got    string
}

func (m *mockTextEmbedder) EmbedText(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called = true
	m.got = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockImageEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockImageEmbedder) EmbedImage(_ context.Context, _ []byte) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func testRecord(t *testing.T, id string, imageVec []float32) product.Record {
	t.Helper()
	rec, err := product.New(id, product.Attributes{
		Category:   "Dress",
		Price:      2500,
		ImagePaths: []string{"images/" + id + ".jpg"},
	})
	if err != nil {
		t.Fatalf("product.New: %v", err)
	}
	if imageVec != nil {
		rec = rec.WithImageVector(imageVec)
	}
	return rec
}

func newTestService(
	repo *mockRepo, products *mockProducts,
	interp *mockInterpreter, text *mockTextEmbedder, img *mockImageEmbedder,
) *Service {
	return New(repo, products, interp, text, img)
}

// Smallest valid PNG: 1x1 transparent pixel.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// --- Tests ---

func TestSearch_InterpretsAndSearches(t *testing.T) {
	priceLT := 5000.0
	repo := &mockRepo{textResults: []result.Summary{
		result.New("p1", "A red dress", 2500, "Red", "V-Neck", "images/p1.jpg", 0.12),
	}}
	interp := &mockInterpreter{analysis: query.Analysis{
		RefinedQuery: "red dress",
		Filters:      query.Filters{Category: "Dress", Color: []string{"Red"}, PriceLT: &priceLT},
	}}
	text := &mockTextEmbedder{vec: []float32{0.1, 0.2}}

	svc := newTestService(repo, &mockProducts{}, interp, text, &mockImageEmbedder{})

	analysis, products, err := svc.Search(context.Background(), "show me red dresses under 5000", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if !interp.called {
		t.Error("expected interpreter to be called")
	}
	if text.got != "red dress" {
		t.Errorf("embedded %q, expected the refined query", text.got)
	}
	if analysis.RefinedQuery != "red dress" {
		t.Errorf("analysis.RefinedQuery = %q", analysis.RefinedQuery)
	}
	if len(products) != 1 || products[0].ID() != "p1" {
		t.Errorf("unexpected products: %v", products)
	}
	if repo.lastPredicate.IsEmpty() {
		t.Error("expected a compiled predicate, got empty")
	}
	if repo.lastK != 5 {
		t.Errorf("k = %d, expected 5", repo.lastK)
	}
}

func TestFilteredTextSearch_NonPositiveK(t *testing.T) {
	repo := &mockRepo{}
	text := &mockTextEmbedder{vec: []float32{0.1}}
	svc := newTestService(repo, &mockProducts{}, &mockInterpreter{}, text, &mockImageEmbedder{})

	for _, k := range []int{0, -3} {
		products, err := svc.FilteredTextSearch(context.Background(), query.Analysis{RefinedQuery: "dress"}, k)
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if len(products) != 0 {
			t.Errorf("k=%d: expected empty ranking, got %d", k, len(products))
		}
	}
	if text.called {
		t.Error("expected no embedding call for non-positive k")
	}
	if repo.textCalled {
		t.Error("expected no repository call for non-positive k")
	}
}

func TestFilteredTextSearch_EmbedderError(t *testing.T) {
	text := &mockTextEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := newTestService(&mockRepo{}, &mockProducts{}, &mockInterpreter{}, text, &mockImageEmbedder{})

	_, err := svc.FilteredTextSearch(context.Background(), query.Analysis{RefinedQuery: "dress"}, 5)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestImageToImageSearch_ExcludesSource(t *testing.T) {
	repo := &mockRepo{imageResults: []result.Summary{
		result.New("p2", "A similar dress", 2700, "Red", "V-Neck", "images/p2.jpg", 0.08),
	}}
	products := &mockProducts{rec: testRecord(t, "p1", []float32{0.3, 0.4})}
	svc := newTestService(repo, products, &mockInterpreter{}, &mockTextEmbedder{}, &mockImageEmbedder{})

	visual, err := svc.ImageToImageSearch(context.Background(), "p1", 5)
	if err != nil {
		t.Fatalf("ImageToImageSearch failed: %v", err)
	}

	if visual.NoVisualData {
		t.Fatal("unexpected NoVisualData")
	}
	if repo.lastExcludeID != "p1" {
		t.Errorf("excludeID = %q, expected p1", repo.lastExcludeID)
	}
	if len(visual.Products) != 1 || visual.Products[0].ID() != "p2" {
		t.Errorf("unexpected products: %v", visual.Products)
	}
}

func TestImageToImageSearch_NoVisualData(t *testing.T) {
	repo := &mockRepo{}
	products := &mockProducts{rec: testRecord(t, "p1", nil)}
	svc := newTestService(repo, products, &mockInterpreter{}, &mockTextEmbedder{}, &mockImageEmbedder{})

	visual, err := svc.ImageToImageSearch(context.Background(), "p1", 5)
	if err != nil {
		t.Fatalf("ImageToImageSearch failed: %v", err)
	}

	if !visual.NoVisualData {
		t.Error("expected NoVisualData outcome")
	}
	if repo.imageCalled {
		t.Error("expected no image-space search for a source without visual data")
	}
}

func TestImageToImageSearch_ProductNotFound(t *testing.T) {
	products := &mockProducts{err: domain.ErrProductNotFound}
	svc := newTestService(&mockRepo{}, products, &mockInterpreter{}, &mockTextEmbedder{}, &mockImageEmbedder{})

	_, err := svc.ImageToImageSearch(context.Background(), "missing", 5)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestUploadedImageSearch_RanksWithoutExclusion(t *testing.T) {
	repo := &mockRepo{imageResults: []result.Summary{
		result.New("p3", "A printed dress", 1900, "Blue", "Round", "images/p3.jpg", 0.2),
	}}
	img := &mockImageEmbedder{vec: []float32{0.5, 0.6}}
	svc := newTestService(repo, &mockProducts{}, &mockInterpreter{}, &mockTextEmbedder{}, img)

	products, err := svc.UploadedImageSearch(context.Background(), tinyPNG, 3)
	if err != nil {
		t.Fatalf("UploadedImageSearch failed: %v", err)
	}

	if !img.called {
		t.Error("expected the image embedder to be called")
	}
	if repo.lastExcludeID != "" {
		t.Errorf("excludeID = %q, expected no exclusion", repo.lastExcludeID)
	}
	if len(products) != 1 || products[0].ID() != "p3" {
		t.Errorf("unexpected products: %v", products)
	}
}

func TestUploadedImageSearch_RejectsNonImage(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockProducts{}, &mockInterpreter{}, &mockTextEmbedder{}, &mockImageEmbedder{})

	_, err := svc.UploadedImageSearch(context.Background(), []byte("not an image at all"), 3)
	if !errors.Is(err, domain.ErrImageDecode) {
		t.Errorf("expected ErrImageDecode, got %v", err)
	}

	_, err = svc.UploadedImageSearch(context.Background(), nil, 3)
	if !errors.Is(err, domain.ErrImageDecode) {
		t.Errorf("expected ErrImageDecode for empty upload, got %v", err)
	}
}

func TestUploadedImageSearch_RejectsOversized(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockProducts{}, &mockInterpreter{}, &mockTextEmbedder{}, &mockImageEmbedder{}).
		WithMaxImageBytes(16)

	big := make([]byte, 64)
	copy(big, tinyPNG)

	_, err := svc.UploadedImageSearch(context.Background(), big, 3)
	if !errors.Is(err, domain.ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
}
