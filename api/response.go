package api

import (
	"encoding/json"
	"net/http"

	"github.com/slotwise/slotwise/utils"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := utils.GetHTTPStatusFromError(err)
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}
