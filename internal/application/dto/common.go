package dto

// ErrorResponse cuerpo de error HTTP.
// Details solo acompaña a los rechazos de porcentaje (requested, min, ceiling).
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]int `json:"details,omitempty"`
}
