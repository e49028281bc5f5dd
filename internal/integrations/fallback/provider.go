package fallback

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"property-desk/internal/integrations"
	"property-desk/internal/integrations/dto"
)

var issues = []dto.GeneratedIssue{
	{
		Title:           "Leaking kitchen faucet",
		Description:     "The kitchen faucet has been dripping constantly for two days and water is pooling under the sink.",
		Priority:        "MEDIUM",
		SuggestedAction: "Replace the faucet cartridge and check the supply lines",
	},
	{
		Title:           "No heat in apartment",
		Description:     "The heating stopped working overnight and the apartment temperature dropped below 15°C.",
		Priority:        "URGENT",
		SuggestedAction: "Dispatch HVAC technician to inspect the boiler",
	},
	{
		Title:           "Broken window latch",
		Description:     "The bedroom window latch is broken and the window cannot be locked.",
		Priority:        "HIGH",
		SuggestedAction: "Replace the window latch hardware",
	},
	{
		Title:           "Clogged bathroom drain",
		Description:     "The bathtub drains very slowly and water stays in the tub for hours.",
		Priority:        "LOW",
		SuggestedAction: "Snake the drain and clear the blockage",
	},
	{
		Title:           "Flickering hallway lights",
		Description:     "The lights in the common hallway flicker on and off throughout the evening.",
		Priority:        "MEDIUM",
		SuggestedAction: "Inspect the light fixtures and replace faulty ballasts",
	},
}

var resolutions = []dto.IssueResolution{
	{
		Resolution:  "Scheduled a maintenance visit to inspect and repair the reported issue",
		ActionTaken: "Created a work order and notified the on-call maintenance team",
		Notes:       "Standard repair expected to be completed within 48 hours",
	},
	{
		Resolution:  "Provided the tenant with troubleshooting steps that usually resolve this issue",
		ActionTaken: "Sent self-service instructions to the tenant",
		Notes:       "Escalate if the tenant reports the problem persists",
	},
	{
		Resolution:  "Ordered replacement parts and booked a contractor",
		ActionTaken: "Purchase order issued to the preferred vendor",
		Notes:       "Parts delivery usually takes 2-3 business days",
	},
}

type categoryRule struct {
	keywords []string
	category string
	priority string
	eta      string
	action   string
}

var categoryRules = []categoryRule{
	{[]string{"fire", "smoke", "gas", "flood", "sparks"}, "Safety", "URGENT", "Immediate", "Contact emergency services and dispatch an on-call technician"},
	{[]string{"leak", "drip", "water", "pipe", "drain", "toilet", "faucet"}, "Plumbing", "HIGH", "2-4 hours", "Dispatch a plumber"},
	{[]string{"heat", "boiler", "hvac", "air condition", "cooling"}, "HVAC", "HIGH", "4-8 hours", "Dispatch an HVAC technician"},
	{[]string{"light", "outlet", "power", "electric", "switch"}, "Electrical", "MEDIUM", "2-4 hours", "Dispatch a licensed electrician"},
	{[]string{"door", "window", "lock", "latch"}, "Security", "MEDIUM", "1-2 hours", "Send a locksmith or handyman"},
	{[]string{"pest", "mice", "roach", "insect"}, "Pest control", "MEDIUM", "1-2 days", "Book a pest control service"},
}

// Provider - локальный генератор без сети. Используется, когда внешний недоступен.
type Provider struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New принимает источник случайности, nil - засеять текущим временем.
func New(src rand.Source) integrations.TextGenerator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Provider{rnd: rand.New(src)}
}

func (p *Provider) Name() string {
	return "fallback"
}

func (p *Provider) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Intn(n)
}

func (p *Provider) Classify(_ context.Context, description string) (*dto.IssueClassification, error) {
	lower := strings.ToLower(description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return &dto.IssueClassification{
					Title:              titleFrom(description),
					Priority:           rule.priority,
					Category:           rule.category,
					EstimatedTimeToFix: rule.eta,
					SuggestedAction:    rule.action,
				}, nil
			}
		}
	}
	return &dto.IssueClassification{
		Title:              titleFrom(description),
		Priority:           "MEDIUM",
		Category:           "General maintenance",
		EstimatedTimeToFix: "1-2 days",
		SuggestedAction:    "Schedule an inspection",
	}, nil
}

func (p *Provider) GenerateIssue(_ context.Context) (*dto.GeneratedIssue, error) {
	issue := issues[p.intn(len(issues))]
	return &issue, nil
}

func (p *Provider) ResolveIssue(_ context.Context, _ string) (*dto.IssueResolution, error) {
	res := resolutions[p.intn(len(resolutions))]
	return &res, nil
}

// titleFrom - первые слова описания, не длиннее 60 символов.
func titleFrom(description string) string {
	words := strings.Fields(description)
	if len(words) == 0 {
		return "Maintenance request"
	}
	var b strings.Builder
	for _, w := range words {
		if b.Len()+len(w)+1 > 60 {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return words[0]
	}
	return b.String()
}
