// Package models defines server-side data models persisted in the metadata store.
package models

// FileType is the kind of a file tree node.
type FileType string

const (
	TypeFolder FileType = "folder"
	TypeFile   FileType = "file"
	TypeImage  FileType = "image"
)

// RootParentID is the parent id of top-level nodes.
const RootParentID = "0"

// Valid reports whether t is one of the known node kinds.
func (t FileType) Valid() bool {
	switch t {
	case TypeFolder, TypeFile, TypeImage:
		return true
	}
	return false
}

// File describes a node of a user's file tree: a folder, a plain file or an image.
type File struct {
	// ID is assigned by the metadata store on insert.
	ID string `json:"id"`
	// UserID is the owner of the node. It never changes after creation.
	UserID string   `json:"userId"`
	Name   string   `json:"name"`
	Type   FileType `json:"type"`
	// ParentID is RootParentID or the id of a folder owned by the same user.
	ParentID string `json:"parentId"`
	IsPublic bool   `json:"isPublic"`
	// LocalPath is the blob storage path of the content. Empty for folders.
	LocalPath string `json:"localPath,omitempty"`
}

// IsRootParent reports whether id designates the top level of the tree.
func IsRootParent(id string) bool {
	return id == "" || id == RootParentID
}
