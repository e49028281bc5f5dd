package integrations

import (
	"context"

	"go.uber.org/zap"

	"property-desk/internal/integrations/dto"
)

// Resilient вызывает активный генератор из реестра, а при любой его ошибке
// отдаёт результат локального fallback. Наружу ошибки не уходят.
type Resilient struct {
	registry RegistryInterface
	fallback TextGenerator
	logger   *zap.Logger
}

func NewResilient(registry RegistryInterface, fallback TextGenerator, logger *zap.Logger) *Resilient {
	return &Resilient{
		registry: registry,
		fallback: fallback,
		logger:   logger.Named("text_generator"),
	}
}

func (r *Resilient) Name() string {
	return "resilient"
}

// primary - активный генератор, если он есть и это не сам fallback.
func (r *Resilient) primary() TextGenerator {
	active, err := r.registry.GetActive()
	if err != nil || active.Name() == r.fallback.Name() {
		return nil
	}
	return active
}

func (r *Resilient) Classify(ctx context.Context, description string) (*dto.IssueClassification, error) {
	if p := r.primary(); p != nil {
		res, err := p.Classify(ctx, description)
		if err == nil {
			return res, nil
		}
		r.logger.Warn("Генератор недоступен, используется fallback для classify", zap.String("provider", p.Name()), zap.Error(err))
	}
	return r.fallback.Classify(ctx, description)
}

func (r *Resilient) GenerateIssue(ctx context.Context) (*dto.GeneratedIssue, error) {
	if p := r.primary(); p != nil {
		res, err := p.GenerateIssue(ctx)
		if err == nil {
			return res, nil
		}
		r.logger.Warn("Генератор недоступен, используется fallback для generateIssue", zap.String("provider", p.Name()), zap.Error(err))
	}
	return r.fallback.GenerateIssue(ctx)
}

func (r *Resilient) ResolveIssue(ctx context.Context, description string) (*dto.IssueResolution, error) {
	if p := r.primary(); p != nil {
		res, err := p.ResolveIssue(ctx, description)
		if err == nil {
			return res, nil
		}
		r.logger.Warn("Генератор недоступен, используется fallback для resolveIssue", zap.String("provider", p.Name()), zap.Error(err))
	}
	return r.fallback.ResolveIssue(ctx, description)
}
