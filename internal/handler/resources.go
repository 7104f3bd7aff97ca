package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"framekit/internal/domain/services"
	"framekit/internal/httputil"
)

// ResourceHandler handles HTTP requests on the resource tree of a project
type ResourceHandler struct {
	resourceService services.ResourceService
	logger          *slog.Logger
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(resourceService services.ResourceService, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		resourceService: resourceService,
		logger:          logger,
	}
}

// GetTree opens the project if needed and returns its resource tree
// GET /api/projects/{id}/resources
func (h *ResourceHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	tree, err := h.resourceService.OpenProject(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tree)
}

// SaveProject writes the open tree to storage
// POST /api/projects/{id}/save
func (h *ResourceHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	if err := h.resourceService.SaveProject(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// CloseProject drops the open tree without saving
// POST /api/projects/{id}/close
func (h *ResourceHandler) CloseProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	if err := h.resourceService.CloseProject(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// CreateFolder creates an empty folder
// POST /api/projects/{id}/resources/folders
func (h *ResourceHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateFolderRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	node, err := h.resourceService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, node)
}

// CreateItem creates an item of a registered kind
// POST /api/projects/{id}/resources/items
func (h *ResourceHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req services.CreateItemRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	node, err := h.resourceService.CreateItem(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, node)
}

// Rename changes a resource's display name
// PATCH /api/projects/{id}/resources/rename
func (h *ResourceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req services.RenameRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	node, err := h.resourceService.Rename(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}

// Delete removes and destroys resources
// POST /api/projects/{id}/resources/delete
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req services.DeleteRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	if err := h.resourceService.Delete(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// Drop copies or moves resources into a folder
// POST /api/projects/{id}/resources/drop
func (h *ResourceHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req services.TransferRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	transfer := h.resourceService.Move
	switch strings.ToLower(req.DropType) {
	case "move", "":
	case "copy":
		transfer = h.resourceService.Copy
	default:
		httputil.RespondError(w, http.StatusBadRequest, `drop_type must be "copy" or "move"`)
		return
	}

	result, err := transfer(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// DropFiles imports files from the server's file system
// POST /api/projects/{id}/resources/files
func (h *ResourceHandler) DropFiles(w http.ResponseWriter, r *http.Request) {
	var req services.DropFilesRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	result, err := h.resourceService.DropFiles(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, result)
}

// SetOnline enables or disables items
// POST /api/projects/{id}/resources/online
func (h *ResourceHandler) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req services.SetOnlineRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	result, err := h.resourceService.SetOnline(r.Context(), &req)
	if err != nil && result == nil {
		handleError(w, err)
		return
	}
	if err != nil {
		h.logger.Warn("set online finished with errors", "project_id", req.ProjectID, "error", err)
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// ListLoadErrors lists outstanding load failures
// GET /api/projects/{id}/resources/errors
func (h *ResourceHandler) ListLoadErrors(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	loadErrors, err := h.resourceService.ListLoadErrors(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, loadErrors)
}

// ResolveLoadError retries one load failure
// POST /api/projects/{id}/resources/errors/{index}/resolve
func (h *ResourceHandler) ResolveLoadError(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	id, ok := projectID(w, r)
	if !ok {
		return
	}

	// the body is optional
	var req services.ResolveLoadErrorRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		badBody(w, err)
		return
	}
	req.ProjectID = id
	req.Index = index

	resolved, err := h.resourceService.ResolveLoadError(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"resolved": resolved})
}

// SetCurrentFolder moves the browsing cursor
// PUT /api/projects/{id}/resources/current
func (h *ResourceHandler) SetCurrentFolder(w http.ResponseWriter, r *http.Request) {
	var req services.SetCurrentFolderRequest
	if !h.parse(w, r, &req, &req.ProjectID) {
		return
	}

	if err := h.resourceService.SetCurrentFolder(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// Census counts the tree's folders, items, references and online items
// GET /api/projects/{id}/resources/census
func (h *ResourceHandler) Census(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	census, err := h.resourceService.Census(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, census)
}

// parse decodes the body into dest and fills in the project ID from the path
func (h *ResourceHandler) parse(w http.ResponseWriter, r *http.Request, dest interface{}, projectIDField *string) bool {
	id, ok := projectID(w, r)
	if !ok {
		return false
	}
	if err := httputil.ParseJSON(w, r, dest); err != nil {
		badBody(w, err)
		return false
	}
	*projectIDField = id
	return true
}
