package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Problem is the RFC7807 body every error response of the solver API uses.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// problemType derives the stable problem URI from a title, e.g.
// "Not Found" -> "urn:ridepool:problem:not-found".
func problemType(title string) string {
	return "urn:ridepool:problem:" + strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     problemType(title),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}
