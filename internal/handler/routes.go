package handler

import "net/http"

// RegisterRoutes wires every endpoint onto mux (Go 1.22+ enhanced patterns)
func RegisterRoutes(mux *http.ServeMux, projects *ProjectHandler, resources *ResourceHandler) {
	// Health check
	mux.HandleFunc("GET /health", projects.HealthCheck)

	// Project routes
	mux.HandleFunc("GET /api/projects", projects.ListProjects)
	mux.HandleFunc("POST /api/projects", projects.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projects.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projects.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projects.DeleteProject)

	// Open project lifecycle
	mux.HandleFunc("POST /api/projects/{id}/save", resources.SaveProject)
	mux.HandleFunc("POST /api/projects/{id}/close", resources.CloseProject)

	// Resource tree routes
	mux.HandleFunc("GET /api/projects/{id}/resources", resources.GetTree)
	mux.HandleFunc("POST /api/projects/{id}/resources/folders", resources.CreateFolder)
	mux.HandleFunc("POST /api/projects/{id}/resources/items", resources.CreateItem)
	mux.HandleFunc("PATCH /api/projects/{id}/resources/rename", resources.Rename)
	mux.HandleFunc("POST /api/projects/{id}/resources/delete", resources.Delete)
	mux.HandleFunc("POST /api/projects/{id}/resources/drop", resources.Drop)
	mux.HandleFunc("POST /api/projects/{id}/resources/files", resources.DropFiles)
	mux.HandleFunc("POST /api/projects/{id}/resources/online", resources.SetOnline)
	mux.HandleFunc("PUT /api/projects/{id}/resources/current", resources.SetCurrentFolder)
	mux.HandleFunc("GET /api/projects/{id}/resources/census", resources.Census)

	// Load errors
	mux.HandleFunc("GET /api/projects/{id}/resources/errors", resources.ListLoadErrors)
	mux.HandleFunc("POST /api/projects/{id}/resources/errors/{index}/resolve", resources.ResolveLoadError)
}
