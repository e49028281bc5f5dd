package entities

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aarondl/null/v8"
)

// Metadata - необязательные поля заявки, в БД лежат одним JSONB-столбцом.
//
// nil означает "поле отсутствует". Поля aiResolution, aiActionTaken и
// manualReviewReason могут быть явным null: это указатель на невалидный null.String.
// Неизвестные ключи сохраняются в Extra и возвращаются при сериализации без изменений.
type Metadata struct {
	ContactPhone       *string      `json:"contactPhone,omitempty"`
	ContactEmail       *string      `json:"contactEmail,omitempty" validate:"omitempty,custom_email"`
	EstimatedCost      *float64     `json:"estimatedCost,omitempty" validate:"omitempty,gte=0"`
	DueDate            *string      `json:"dueDate,omitempty"`
	Notes              *string      `json:"notes,omitempty"`
	UseAI              *bool        `json:"useAI,omitempty"`
	GeneratedByAI      *bool        `json:"generatedByAI,omitempty"`
	ActionRequired     *string      `json:"actionRequired,omitempty"`
	AIProcessed        *bool        `json:"aiProcessed,omitempty"`
	AIResolution       *null.String `json:"aiResolution,omitempty"`
	AIActionTaken      *null.String `json:"aiActionTaken,omitempty"`
	AINotes            *string      `json:"aiNotes,omitempty"`
	AIProcessingTime   *string      `json:"aiProcessingTime,omitempty"`
	ManualReviewReason *null.String `json:"manualReviewReason,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// metadataFields - псевдоним без методов, чтобы не уйти в рекурсию в (Un)MarshalJSON.
type metadataFields Metadata

var nullableMetadataKeys = map[string]func(m *Metadata){
	"aiResolution":       func(m *Metadata) { m.AIResolution = &null.String{} },
	"aiActionTaken":      func(m *Metadata) { m.AIActionTaken = &null.String{} },
	"manualReviewReason": func(m *Metadata) { m.ManualReviewReason = &null.String{} },
}

// clearMetadataKeys сбрасывают типизированное поле, когда patch присылает для него явный null.
var clearMetadataKeys = map[string]func(m *Metadata){
	"contactPhone":     func(m *Metadata) { m.ContactPhone = nil },
	"contactEmail":     func(m *Metadata) { m.ContactEmail = nil },
	"estimatedCost":    func(m *Metadata) { m.EstimatedCost = nil },
	"dueDate":          func(m *Metadata) { m.DueDate = nil },
	"notes":            func(m *Metadata) { m.Notes = nil },
	"useAI":            func(m *Metadata) { m.UseAI = nil },
	"generatedByAI":    func(m *Metadata) { m.GeneratedByAI = nil },
	"actionRequired":   func(m *Metadata) { m.ActionRequired = nil },
	"aiProcessed":      func(m *Metadata) { m.AIProcessed = nil },
	"aiNotes":          func(m *Metadata) { m.AINotes = nil },
	"aiProcessingTime": func(m *Metadata) { m.AIProcessingTime = nil },
}

var knownMetadataKeys = map[string]struct{}{
	"contactPhone": {}, "contactEmail": {}, "estimatedCost": {}, "dueDate": {}, "notes": {},
	"useAI": {}, "generatedByAI": {}, "actionRequired": {}, "aiProcessed": {},
	"aiResolution": {}, "aiActionTaken": {}, "aiNotes": {}, "aiProcessingTime": {},
	"manualReviewReason": {},
}

var jsonNull = []byte("null")

func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		*m = Metadata{}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("metadata должна быть JSON-объектом: %w", err)
	}

	var fields metadataFields
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fmt.Errorf("некорректное поле metadata: %w", err)
	}
	result := Metadata(fields)

	for key, value := range raw {
		_, known := knownMetadataKeys[key]
		isNull := bytes.Equal(bytes.TrimSpace(value), jsonNull)
		if known && !isNull {
			continue
		}
		if known {
			if setNull, ok := nullableMetadataKeys[key]; ok {
				setNull(&result)
				continue
			}
		}
		// Явный null в ненуллабельном поле тоже уходит в Extra, иначе он потеряется при записи.
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, value); err != nil {
			return fmt.Errorf("некорректное значение metadata.%s: %w", key, err)
		}
		if result.Extra == nil {
			result.Extra = make(map[string]json.RawMessage)
		}
		result.Extra[key] = json.RawMessage(compacted.Bytes())
	}

	*m = result
	return nil
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	encoded, err := json.Marshal(metadataFields(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return encoded, nil
	}

	merged := make(map[string]json.RawMessage, len(m.Extra)+len(knownMetadataKeys))
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, err
	}
	for key, value := range m.Extra {
		if _, taken := merged[key]; taken {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Merge накладывает patch поверх m: каждое присутствующее в patch поле заменяет
// прежнее значение, отсутствующие поля остаются как были.
func (m Metadata) Merge(patch Metadata) Metadata {
	merged := m

	if patch.ContactPhone != nil {
		merged.ContactPhone = patch.ContactPhone
	}
	if patch.ContactEmail != nil {
		merged.ContactEmail = patch.ContactEmail
	}
	if patch.EstimatedCost != nil {
		merged.EstimatedCost = patch.EstimatedCost
	}
	if patch.DueDate != nil {
		merged.DueDate = patch.DueDate
	}
	if patch.Notes != nil {
		merged.Notes = patch.Notes
	}
	if patch.UseAI != nil {
		merged.UseAI = patch.UseAI
	}
	if patch.GeneratedByAI != nil {
		merged.GeneratedByAI = patch.GeneratedByAI
	}
	if patch.ActionRequired != nil {
		merged.ActionRequired = patch.ActionRequired
	}
	if patch.AIProcessed != nil {
		merged.AIProcessed = patch.AIProcessed
	}
	if patch.AIResolution != nil {
		merged.AIResolution = patch.AIResolution
	}
	if patch.AIActionTaken != nil {
		merged.AIActionTaken = patch.AIActionTaken
	}
	if patch.AINotes != nil {
		merged.AINotes = patch.AINotes
	}
	if patch.AIProcessingTime != nil {
		merged.AIProcessingTime = patch.AIProcessingTime
	}
	if patch.ManualReviewReason != nil {
		merged.ManualReviewReason = patch.ManualReviewReason
	}

	if len(patch.Extra) > 0 {
		extra := make(map[string]json.RawMessage, len(m.Extra)+len(patch.Extra))
		for k, v := range m.Extra {
			extra[k] = v
		}
		for k, v := range patch.Extra {
			extra[k] = v
			// явный null для известного ключа затирает прежнее значение
			if reset, ok := clearMetadataKeys[k]; ok && bytes.Equal(bytes.TrimSpace(v), jsonNull) {
				reset(&merged)
			}
		}
		merged.Extra = extra
	}

	return merged
}

// IsEmpty - в metadata нет ни одного поля.
func (m Metadata) IsEmpty() bool {
	encoded, err := m.MarshalJSON()
	return err == nil && string(encoded) == "{}"
}
