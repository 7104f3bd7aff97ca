package models

import (
	"time"

	"framekit/internal/docmodel"
)

// ResourceDocument is the serialised resource tree of a project
type ResourceDocument struct {
	ProjectID string        `json:"project_id" db:"project_id"`
	Data      docmodel.Dict `json:"data" db:"data"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// ResourceTree is the client view of an open project
type ResourceTree struct {
	ProjectID     string       `json:"project_id"`
	CurrentFolder string       `json:"current_folder"`
	CurrID        uint64       `json:"curr_id"`
	Modified      bool         `json:"modified"`
	Root          ResourceNode `json:"root"`
}

// ResourceNode is one folder or item in the tree. Path is the index path from the root
// ("" for the root itself, "0/2" for the third child of the first child).
type ResourceNode struct {
	Path     string         `json:"path"`
	Kind     string         `json:"kind"`
	Name     string         `json:"name"`
	Item     *ItemState     `json:"item,omitempty"`
	Children []ResourceNode `json:"children,omitempty"`
}

// ItemState carries the runtime state of an item node
type ItemState struct {
	ID            uint64 `json:"id"`
	Online        bool   `json:"online"`
	OfflineByUser bool   `json:"offline_by_user"`
	References    int    `json:"references"`
	LinkLimit     int    `json:"link_limit"`
}

// LoadError is an outstanding failure to bring an item online
type LoadError struct {
	Index    int    `json:"index"`
	ItemID   uint64 `json:"item_id"`
	ItemPath string `json:"item_path"`
	ItemName string `json:"item_name"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
	FilePath string `json:"file_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Census counts what sits below the root folder
type Census struct {
	Folders    int `json:"folders"`
	Items      int `json:"items"`
	References int `json:"references"`
	Online     int `json:"online"`
}

// TransferResult lists where dropped resources ended up
type TransferResult struct {
	DropType string         `json:"drop_type"`
	Nodes    []ResourceNode `json:"nodes"`
}

// DropFilesResult reports what a native file drop created
type DropFilesResult struct {
	Created   []ResourceNode `json:"created"`
	Unhandled []string       `json:"unhandled"`
}

// SetOnlineResult reports the outcome of an online/offline request per path
type SetOnlineResult struct {
	Changed []string `json:"changed"`
	Failed  []string `json:"failed"`
}
