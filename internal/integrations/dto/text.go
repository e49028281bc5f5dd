package dto

// IssueClassification - ответ генератора на classify.
type IssueClassification struct {
	Title              string `json:"title"`
	Priority           string `json:"priority"`
	Category           string `json:"category"`
	EstimatedTimeToFix string `json:"estimatedTimeToFix"`
	SuggestedAction    string `json:"suggestedAction"`
}

// GeneratedIssue - синтетическая заявка.
type GeneratedIssue struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Priority        string `json:"priority"`
	SuggestedAction string `json:"suggestedAction"`
}

// IssueResolution - предложенное решение для AI-обработки.
type IssueResolution struct {
	Resolution  string `json:"resolution"`
	ActionTaken string `json:"actionTaken"`
	Notes       string `json:"notes"`
}
