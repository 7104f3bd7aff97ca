package resource

import (
	"fmt"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
)

// Document keys
const (
	keyFactoryID   = "FactoryId"
	keyData        = "Data"
	keyDisplayName = "DisplayName"
	keyItems       = "Items"
	keyUniqueID    = "UniqueId"
	keyIsOnline    = "IsOnline"
	keyRoot        = "RootContainer"
	keyCurrID      = "CurrId"
)

// WriteResource serialises r as {"FactoryId": id, "Data": {...}}
func WriteResource(r Resource) docmodel.Dict {
	doc := docmodel.NewDict()
	doc.SetString(keyFactoryID, r.FactoryID())
	writeData(r, doc.CreateDict(keyData))
	return doc
}

func writeData(r Resource, data docmodel.Dict) {
	if name := r.DisplayName(); name != "" {
		data.SetString(keyDisplayName, name)
	}
	switch t := r.(type) {
	case *Folder:
		items := make(docmodel.List, 0, len(t.items))
		for _, child := range t.items {
			items = append(items, WriteResource(child))
		}
		data.SetList(keyItems, items)
	case *Item:
		if t.uniqueID != EmptyID {
			data.SetUint64(keyUniqueID, t.uniqueID)
		}
		if !t.online {
			data.SetBool(keyIsOnline, false)
		}
		t.content.Serialise(data)
	}
}

// ReadResource rebuilds a detached resource from a document written by WriteResource.
// Items come back offline; items saved offline are marked offline by the user so the
// auto-loader leaves them alone. A saved unique id is kept and reused once the item attaches.
func ReadResource(doc docmodel.Dict, reg *Registry) (Resource, error) {
	id, ok := doc.TryGetString(keyFactoryID)
	if !ok || id == "" {
		return nil, &domain.ValidationError{Message: "resource document has no factory id"}
	}
	data, err := doc.GetDict(keyData)
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("resource %q: %v", id, err)}
	}
	r, err := reg.NewResource(id)
	if err != nil {
		return nil, err
	}
	if err := readData(r, data, reg); err != nil {
		_ = r.Destroy()
		return nil, err
	}
	return r, nil
}

func readData(r Resource, data docmodel.Dict, reg *Registry) error {
	r.base().displayName = data.GetString(keyDisplayName, "")
	switch t := r.(type) {
	case *Folder:
		children, err := readChildren(data, reg)
		if err != nil {
			return fmt.Errorf("folder %q: %w", t.displayName, err)
		}
		for _, child := range children {
			if err := t.AddItem(child); err != nil {
				return err
			}
		}
	case *Item:
		t.uniqueID = data.GetUint64(keyUniqueID, EmptyID)
		if online, ok := data.TryGetBool(keyIsOnline); ok && !online {
			t.offlineByUser = true
		}
		if err := t.content.Deserialise(data); err != nil {
			return fmt.Errorf("%s %q: %w", t.content.Kind(), t.displayName, err)
		}
	}
	return nil
}

// readChildren reads the "Items" list. Nothing is returned unless every child was read.
func readChildren(data docmodel.Dict, reg *Registry) ([]Resource, error) {
	if !data.Has(keyItems) {
		return nil, nil
	}
	list, err := data.GetList(keyItems)
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	docs, err := list.Dicts()
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	children := make([]Resource, 0, len(docs))
	for _, d := range docs {
		child, err := ReadResource(d, reg)
		if err != nil {
			_ = DestroyAll(children)
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// Serialise writes the root subtree and the id counter
func (m *Manager) Serialise(data docmodel.Dict) {
	writeData(m.root, data.CreateDict(keyRoot))
	data.SetUint64(keyCurrID, m.currID)
}

// Deserialise loads a tree written by Serialise into an empty manager. Either the whole
// tree is loaded or nothing is.
func (m *Manager) Deserialise(data docmodel.Dict, reg *Registry) error {
	if len(m.entries) > 0 || len(m.root.items) > 0 {
		return domain.InvalidState("cannot read data while resources are still registered")
	}
	root, err := data.GetDict(keyRoot)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	children, err := readChildren(root, reg)
	if err != nil {
		return err
	}
	m.currID = data.GetUint64(keyCurrID, 0)
	for _, child := range children {
		if err := m.root.AddItem(child); err != nil {
			return err
		}
	}
	return nil
}
