package resources

import (
	"framekit/internal/domain/models"
	"framekit/internal/resource"
)

// buildTree snapshots the session's tree. Owner goroutine only.
func buildTree(s *session) *models.ResourceTree {
	current := ""
	if f := s.manager.CurrentFolder(); f != nil {
		current = resource.PathOf(f).String()
	}
	return &models.ResourceTree{
		ProjectID:     s.projectID,
		CurrentFolder: current,
		CurrID:        s.manager.CurrID(),
		Modified:      s.modified(),
		Root:          buildNode(s.manager.Root(), resource.Path{}),
	}
}

// buildNode converts r and everything below it. path is r's own path.
func buildNode(r resource.Resource, path resource.Path) models.ResourceNode {
	node := models.ResourceNode{
		Path: path.String(),
		Kind: r.FactoryID(),
		Name: r.DisplayName(),
	}
	switch v := r.(type) {
	case *resource.Item:
		node.Item = &models.ItemState{
			ID:            v.UniqueID(),
			Online:        v.IsOnline(),
			OfflineByUser: v.IsOfflineByUser(),
			References:    len(v.References()),
			LinkLimit:     v.LinkLimit(),
		}
	case *resource.Folder:
		items := v.Items()
		if len(items) > 0 {
			node.Children = make([]models.ResourceNode, len(items))
			for i, child := range items {
				childPath := append(append(resource.Path{}, path...), i)
				node.Children[i] = buildNode(child, childPath)
			}
		}
	}
	return node
}

// nodeOf converts one resource with its real path
func nodeOf(r resource.Resource) models.ResourceNode {
	return buildNode(r, resource.PathOf(r))
}

func nodesOf[T resource.Resource](resources []T) []models.ResourceNode {
	nodes := make([]models.ResourceNode, 0, len(resources))
	for _, r := range resources {
		nodes = append(nodes, nodeOf(r))
	}
	return nodes
}

func loadErrorsOf(entries []resource.InvalidEntry) []models.LoadError {
	out := make([]models.LoadError, 0, len(entries))
	for i, e := range entries {
		le := models.LoadError{
			Index:    i,
			Reason:   e.Reason,
			FilePath: e.Path,
		}
		if e.Err != nil {
			le.Error = e.Err.Error()
		}
		if e.Item != nil {
			le.ItemID = e.Item.UniqueID()
			le.ItemName = e.Item.DisplayName()
			le.Kind = e.Item.FactoryID()
			if e.Item.IsRegistered() {
				le.ItemPath = resource.PathOf(e.Item).String()
			}
		}
		out = append(out, le)
	}
	return out
}
