package handler

import "greenlens/internal/domain"

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data"`
}

// ErrorResponseBody is the error envelope.
type ErrorResponseBody struct {
	Success bool     `json:"success" example:"false"`
	Error   APIError `json:"error"`
}

// HighlightsResponse lists the normalized evidence search strings.
type HighlightsResponse struct {
	Highlights []string `json:"highlights" example:"The companyreduced emissions"`
}

// JumpResponse describes a navigation request sent to the viewer.
type JumpResponse struct {
	Index      int               `json:"index" example:"0"`
	PageIndex  int               `json:"page_index" example:"2"`
	Initiative domain.Initiative `json:"initiative"`
}
