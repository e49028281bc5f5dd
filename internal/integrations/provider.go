package integrations

import (
	"context"

	"property-desk/internal/integrations/dto"
)

// TextGenerator - внешний генератор текста для заявок.
type TextGenerator interface {
	Name() string
	Classify(ctx context.Context, description string) (*dto.IssueClassification, error)
	GenerateIssue(ctx context.Context) (*dto.GeneratedIssue, error)
	ResolveIssue(ctx context.Context, description string) (*dto.IssueResolution, error)
}
