package interpret

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stylevec/internal/domain/query"
	"github.com/kailas-cloud/stylevec/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Service turns a free-text query into a query.Analysis. Interpretation is
// best-effort: any provider failure, timeout, or unparseable output degrades
// to the identity analysis (original query, no filters) instead of failing
// the request.
type Service struct {
	chat    ChatClient
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an interpretation service.
func New(chat ChatClient, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{chat: chat, timeout: timeout, logger: logger}
}

// Interpret analyzes rawQuery with a single LLM attempt. It never returns
// an error: the fallback analysis keeps search available when the
// interpreter is down.
func (s *Service) Interpret(ctx context.Context, rawQuery string) query.Analysis {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.chat.Model()
	start := time.Now()

	content, err := s.chat.Complete(ctx, systemPrompt, rawQuery)

	metrics.InterpreterRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Warn("query interpretation failed, using identity analysis",
			zap.String("model", model),
			zap.Error(err),
		)
		metrics.InterpreterRequestsTotal.WithLabelValues(model, "fallback").Inc()
		return fallback(rawQuery)
	}

	analysis, err := query.ParseAnalysis([]byte(content), rawQuery)
	if err != nil {
		s.logger.Warn("query interpretation returned unparseable content, using identity analysis",
			zap.String("model", model),
			zap.Error(err),
		)
		metrics.InterpreterRequestsTotal.WithLabelValues(model, "fallback").Inc()
		return fallback(rawQuery)
	}

	metrics.InterpreterRequestsTotal.WithLabelValues(model, "ok").Inc()
	return analysis
}

func fallback(rawQuery string) query.Analysis {
	return query.Analysis{RefinedQuery: rawQuery}
}
