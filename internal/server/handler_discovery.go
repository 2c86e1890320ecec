package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

var endpoints = []endpointInfo{
	{"/api/v1/health", []string{"GET"}, "Server health, belt session and trace recorder counters"},
	{"/api/v1/stats", []string{"GET", "DELETE"}, "Aggregated cycle statistics; DELETE resets the counters"},
	{"/api/v1/config", []string{"GET", "PUT"}, "Runtime belt settings; PUT applies a partial update"},
	{"/api/v1/renderables", []string{"GET", "POST"}, "Demo renderables on the render belt"},
	{"/api/v1/renderables/{id}", []string{"GET", "PUT", "DELETE"}, "Single renderable: flags, counters, removal"},
	{"/api/v1/renderables/{id}/update", []string{"POST"}, "Make a renderable request a frame"},
	{"/api/v1/jobs", []string{"GET", "POST"}, "Synthetic idle jobs"},
	{"/api/v1/jobs/{id}", []string{"GET", "DELETE"}, "Single job; DELETE cancels a queued job"},
	{"/api/v1/cycles", []string{"GET"}, "Recorded cycle traces (?kind=render|idle&session=&limit=&offset=)"},
	{"/api/v1/cycles/{id}", []string{"GET"}, "Single cycle trace"},
	{"/api/v1/sse/stats", []string{"GET"}, "Server-sent stream of statistics snapshots"},
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "timingbelt API",
		Version:     "v1",
		Description: "Cooperative frame scheduler: inspect and drive a timing belt",
		Endpoints:   endpoints,
	})
}
