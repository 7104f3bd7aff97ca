package services

import (
	"context"

	"framekit/internal/docmodel"
	"framekit/internal/domain/models"
)

// Resources inside a project are addressed by index path ("" is the root folder,
// "1/0" is the first child of the second child of the root).

// CreateFolderRequest creates an empty folder at the end of Parent
type CreateFolderRequest struct {
	ProjectID string `json:"-"`
	Parent    string `json:"parent"`
	Name      string `json:"name"`
}

// CreateItemRequest creates an item of a registered kind at the end of Parent. Data is
// the kind-specific payload in the same shape the project file uses.
type CreateItemRequest struct {
	ProjectID string        `json:"-"`
	Parent    string        `json:"parent"`
	Name      string        `json:"name"`
	Kind      string        `json:"kind"`
	Data      docmodel.Dict `json:"data,omitempty"`
	Enable    bool          `json:"enable"`
}

// RenameRequest changes the display name of one resource
type RenameRequest struct {
	ProjectID string `json:"-"`
	Path      string `json:"path"`
	Name      string `json:"name"`
}

// DeleteRequest removes and destroys resources
type DeleteRequest struct {
	ProjectID string   `json:"-"`
	Paths     []string `json:"paths"`
}

// TransferRequest drops resources onto a target folder. DropType is "copy" or "move";
// it is only read by the HTTP drop endpoint, which picks Copy or Move.
type TransferRequest struct {
	ProjectID string   `json:"-"`
	Target    string   `json:"target"`
	Paths     []string `json:"paths"`
	DropType  string   `json:"drop_type"`
}

// DropFilesRequest imports files from the server's file system into a folder
type DropFilesRequest struct {
	ProjectID string   `json:"-"`
	Target    string   `json:"target"`
	Files     []string `json:"files"`
}

// SetOnlineRequest enables items through the loader or disables them as the user
type SetOnlineRequest struct {
	ProjectID string   `json:"-"`
	Paths     []string `json:"paths"`
	Online    bool     `json:"online"`
}

// ResolveLoadErrorRequest retries an outstanding load error, optionally with a new file
type ResolveLoadErrorRequest struct {
	ProjectID string `json:"-"`
	Index     int    `json:"-"`
	FilePath  string `json:"file_path,omitempty"`
}

// SetCurrentFolderRequest moves the browsing cursor
type SetCurrentFolderRequest struct {
	ProjectID string `json:"-"`
	Path      string `json:"path"`
}

// ResourceService operates on the resource trees of open projects. Every call on a
// project is serialised through that project's session.
type ResourceService interface {
	// OpenProject loads the project's stored tree (or an empty one) and starts
	// auto-loading its items. Opening an open project returns its current tree.
	OpenProject(ctx context.Context, projectID string) (*models.ResourceTree, error)

	// CloseProject saves nothing, destroys the tree and stops the session
	CloseProject(ctx context.Context, projectID string) error

	// SaveProject writes the tree to the document repository
	SaveProject(ctx context.Context, projectID string) error

	GetTree(ctx context.Context, projectID string) (*models.ResourceTree, error)
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.ResourceNode, error)
	CreateItem(ctx context.Context, req *CreateItemRequest) (*models.ResourceNode, error)
	Rename(ctx context.Context, req *RenameRequest) (*models.ResourceNode, error)
	Delete(ctx context.Context, req *DeleteRequest) error

	// Move and Copy follow drag-and-drop semantics: moves skip entries that would
	// create a cycle, copies are renamed away from their new siblings and auto-loaded.
	Move(ctx context.Context, req *TransferRequest) (*models.TransferResult, error)
	Copy(ctx context.Context, req *TransferRequest) (*models.TransferResult, error)

	DropFiles(ctx context.Context, req *DropFilesRequest) (*models.DropFilesResult, error)
	SetOnline(ctx context.Context, req *SetOnlineRequest) (*models.SetOnlineResult, error)

	ListLoadErrors(ctx context.Context, projectID string) ([]models.LoadError, error)
	ResolveLoadError(ctx context.Context, req *ResolveLoadErrorRequest) (bool, error)

	SetCurrentFolder(ctx context.Context, req *SetCurrentFolderRequest) error
	Census(ctx context.Context, projectID string) (*models.Census, error)
}
