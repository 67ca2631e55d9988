package vectorserver

import (
	"encoding/json"
	"net/http"

	"github.com/quartzvec/vectorengine/pkg/vectorerr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps a returned error to its typed status via
// vectorerr.HTTPStatus and renders it the same shape as writeError.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, vectorerr.HTTPStatus(err), err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
