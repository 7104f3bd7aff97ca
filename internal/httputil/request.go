package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"framekit/internal/config"
)

// ParseJSON decodes the request body into dest. Unknown fields are ignored
// because item data is kind-specific and validated by the service.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
