package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/stylevec/internal/domain"
	"github.com/kailas-cloud/stylevec/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/stylevec/internal/usecase/health"
	searchuc "github.com/kailas-cloud/stylevec/internal/usecase/search"
)

// Response texts mirror what the storefront chat surface displays verbatim.
const (
	textSearchResults = "Here are some results:"
	textVisualResults = "Products visually similar to this:"
	textUploadResults = "Results based on uploaded image:"
	textNoVisualData  = "This product has no visual data to compare."
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Limits describes result count bounds applied to client requests.
type Limits struct {
	DefaultK int
	MaxK     int
}

// Config holds the HTTP server dependencies and settings.
type Config struct {
	Search     *searchuc.Service
	Health     *healthuc.Service
	Limits     Limits
	AssetsDir  string
	UploadsDir string
	MaxUpload  int64
	Logger     *zap.Logger
}

// Server exposes catalog search over HTTP.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	limits        Limits
	assetsDir     string
	uploadsDir    string
	maxUpload     int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(cfg *Config) *Server {
	s := &Server{
		search:     cfg.Search,
		health:     cfg.Health,
		limits:     cfg.Limits,
		assetsDir:  cfg.AssetsDir,
		uploadsDir: cfg.UploadsDir,
		maxUpload:  cfg.MaxUpload,
		logger:     cfg.Logger,
	}
	if s.limits.DefaultK <= 0 {
		s.limits.DefaultK = 5
	}
	if s.limits.MaxK <= 0 {
		s.limits.MaxK = 50
	}
	if s.maxUpload <= 0 {
		s.maxUpload = searchuc.DefaultMaxImageBytes
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, "product_not_found"),
		sentinelHandler(domain.ErrInvalidProduct, http.StatusBadRequest, "invalid_product"),
		sentinelHandler(domain.ErrImageDecode, http.StatusBadRequest, "image_decode_error"),
		sentinelHandler(domain.ErrImageTooLarge, http.StatusBadRequest, "image_too_large"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.handleSearch)
	r.Post("/similar-by-image", s.handleSimilarByImage)
	r.Post("/upload-and-search", s.handleUploadAndSearch)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	if s.assetsDir != "" {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(s.assetsDir)))
		r.Get("/static/*", fileServer.ServeHTTP)
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

type similarByImageRequest struct {
	ProductID string `json:"product_id"`
	Limit     *int   `json:"limit,omitempty"`
}

type productResponse struct {
	ID       string  `json:"id"`
	Summary  string  `json:"summary"`
	Price    int     `json:"price"`
	Color    string  `json:"color"`
	Neckline string  `json:"neckline"`
	Image    string  `json:"image"`
	Distance float64 `json:"distance"`
}

type searchResponse struct {
	ResponseText string            `json:"response_text"`
	Products     []productResponse `json:"products"`
}

// handleSearch handles POST /search: free-text query, interpreted and
// ranked in the text space.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Query is required")
		return
	}

	k := s.clampLimit(req.Limit)

	_, products, err := s.search.Search(r.Context(), query, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		ResponseText: textSearchResults,
		Products:     productsToResponse(products),
	})
}

// handleSimilarByImage handles POST /similar-by-image: visual similarity
// anchored on an existing catalog product.
func (s *Server) handleSimilarByImage(w http.ResponseWriter, r *http.Request) {
	var req similarByImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Product id is required")
		return
	}

	k := s.clampLimit(req.Limit)

	visual, err := s.search.ImageToImageSearch(r.Context(), productID, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := searchResponse{
		ResponseText: textVisualResults,
		Products:     productsToResponse(visual.Products),
	}
	if visual.NoVisualData {
		resp.ResponseText = textNoVisualData
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUploadAndSearch handles POST /upload-and-search: multipart image
// upload, persisted under a generated name, then ranked in the image space.
func (s *Server) handleUploadAndSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image_too_large",
				fmt.Sprintf("Upload exceeds %d bytes", s.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "Multipart field 'file' is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if ext != "jpg" && ext != "jpeg" && ext != "png" {
		writeError(w, http.StatusBadRequest, "unsupported_image_type", "Only jpg, jpeg, png files allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image_too_large",
				fmt.Sprintf("Upload exceeds %d bytes", s.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "Failed to read upload: "+err.Error())
		return
	}

	products, err := s.search.UploadedImageSearch(r.Context(), data, s.limits.DefaultK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	// Persist after validation so rejected uploads leave nothing behind.
	if s.uploadsDir != "" {
		name := uuid.New().String() + "." + ext
		if err := os.WriteFile(filepath.Join(s.uploadsDir, name), data, 0o644); err != nil {
			s.logger.Warn("failed to persist upload",
				zap.String("name", name),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		ResponseText: textUploadResults,
		Products:     productsToResponse(products),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// clampLimit resolves the requested result count against configured bounds.
// Zero and negative limits are honored: they produce an empty ranking.
func (s *Server) clampLimit(limit *int) int {
	if limit == nil {
		return s.limits.DefaultK
	}
	if *limit > s.limits.MaxK {
		return s.limits.MaxK
	}
	return *limit
}

func productsToResponse(products []result.Summary) []productResponse {
	out := make([]productResponse, 0, len(products))
	for i := range products {
		p := &products[i]
		out = append(out, productResponse{
			ID:       p.ID(),
			Summary:  p.Summary(),
			Price:    p.Price(),
			Color:    p.Color(),
			Neckline: p.Neckline(),
			Image:    p.Image(),
			Distance: p.Distance(),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrProductNotFound,
		domain.ErrInvalidProduct,
		domain.ErrImageDecode,
		domain.ErrImageTooLarge,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}

	s.logger.Error("unhandled domain error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", msg)
}
