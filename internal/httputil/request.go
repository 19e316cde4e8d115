package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxRequestBody caps JSON request bodies accepted by DecodeJSON. Frame
// payloads with hundreds of detections fit comfortably under this.
const maxRequestBody = 4 * 1024 * 1024 // 4MB

// DecodeJSON reads a JSON request body into dst, rejecting oversized
// payloads and trailing garbage. Handlers should pair a non-nil error
// with a BadRequest response.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	// A second token means trailing content after the JSON value.
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON body")
	}
	return nil
}
