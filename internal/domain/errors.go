package domain

import "errors"

var (
	// ErrProductNotFound signals an unknown product id.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidProduct signals a malformed product record at ingestion.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrImageDecode signals unparseable uploaded image data.
	ErrImageDecode = errors.New("cannot decode image")
	// ErrImageTooLarge signals an uploaded image exceeding the byte limit.
	ErrImageTooLarge = errors.New("image too large")
	// ErrVectorDimMismatch signals a vector of the wrong dimension for its space.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
