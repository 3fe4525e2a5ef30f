package templates

import "time"

// TemplateResponse is the JSON shape of a template.
type TemplateResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	QueryText   string    `json:"query_text"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
}

type createTemplateRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	QueryText   string `json:"query_text"`
}

// ToResponse maps a Template onto its JSON shape.
func ToResponse(t Template) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Category:    t.Category,
		Description: t.Description,
		QueryText:   t.QueryText,
		IsSystem:    t.IsSystem,
		CreatedAt:   t.CreatedAt,
	}
}
