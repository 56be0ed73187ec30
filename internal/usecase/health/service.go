package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an embedding provider failure; stored vectors
	// still serve image-to-image search.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across the database and the two
// embedding providers.
type Service struct {
	db         DBPinger
	textEmbed  EmbeddingChecker
	imageEmbed EmbeddingChecker
}

// New creates a Service. Either embedding checker can be nil.
func New(db DBPinger, textEmbed, imageEmbed EmbeddingChecker) *Service {
	return &Service{db: db, textEmbed: textEmbed, imageEmbed: imageEmbed}
}

// Check runs health checks against all components. A database failure makes
// the whole service unhealthy; embedding provider failures degrade it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := s.db.Ping(ctx) == nil
	if dbOK {
		checks["database"] = CheckOK
	} else {
		checks["database"] = CheckError
	}

	embedOK := true
	if s.textEmbed != nil {
		if err := s.textEmbed.HealthCheck(ctx); err != nil {
			checks["text_embedding"] = CheckError
			embedOK = false
		} else {
			checks["text_embedding"] = CheckOK
		}
	}
	if s.imageEmbed != nil {
		if err := s.imageEmbed.HealthCheck(ctx); err != nil {
			checks["image_embedding"] = CheckError
			embedOK = false
		} else {
			checks["image_embedding"] = CheckOK
		}
	}

	switch {
	case !dbOK:
		return Report{Status: Unhealthy, Checks: checks}
	case !embedOK:
		return Report{Status: Degraded, Checks: checks}
	default:
		return Report{Status: Healthy, Checks: checks}
	}
}
