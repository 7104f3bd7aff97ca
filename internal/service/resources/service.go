// Package resources serves the resource trees of open projects. Each open project gets
// a session whose owner goroutine performs every tree operation in order.
package resources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
	"framekit/internal/domain/models"
	"framekit/internal/domain/repositories"
	svc "framekit/internal/domain/services"
	"framekit/internal/resource"
)

// Options tunes a ResourceService. Zero values take defaults.
type Options struct {
	LoadTimeout     time.Duration
	LoadConcurrency int
	Registry        *resource.Registry
	NativeDrops     *resource.NativeDropRegistry
}

// ResourceService implements services.ResourceService
type ResourceService struct {
	projectRepo repositories.ProjectRepository
	docRepo     repositories.ResourceDocumentRepository
	txManager   repositories.TransactionManager
	registry    *resource.Registry
	natives     *resource.NativeDropRegistry
	loads       *autoLoader
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

var _ svc.ResourceService = (*ResourceService)(nil)

// NewResourceService creates a new resource service
func NewResourceService(
	projectRepo repositories.ProjectRepository,
	docRepo repositories.ResourceDocumentRepository,
	txManager repositories.TransactionManager,
	opts Options,
	logger *slog.Logger,
) *ResourceService {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	if opts.LoadConcurrency <= 0 {
		opts.LoadConcurrency = 4
	}
	if opts.Registry == nil {
		opts.Registry = resource.DefaultRegistry()
	}
	if opts.NativeDrops == nil {
		opts.NativeDrops = resource.DefaultNativeDropRegistry()
	}
	return &ResourceService{
		projectRepo: projectRepo,
		docRepo:     docRepo,
		txManager:   txManager,
		registry:    opts.Registry,
		natives:     opts.NativeDrops,
		loads:       &autoLoader{timeout: opts.LoadTimeout, limit: opts.LoadConcurrency},
		logger:      logger,
		sessions:    make(map[string]*session),
	}
}

// OpenProject loads the stored tree and starts bringing its items online in the
// background. Items saved as offline by the user stay offline.
func (s *ResourceService) OpenProject(ctx context.Context, projectID string) (*models.ResourceTree, error) {
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}
	if sess := s.lookup(projectID); sess != nil {
		return s.GetTree(ctx, projectID)
	}

	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	manager := resource.NewManager(s.logger)
	doc, err := s.docRepo.Load(ctx, projectID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// never saved: start empty
	case err != nil:
		return nil, err
	default:
		if err := manager.Deserialise(doc.Data, s.registry); err != nil {
			return nil, fmt.Errorf("project %s: %w", projectID, err)
		}
	}

	sess := newSession(projectID, manager, s.logger)
	s.mu.Lock()
	if existing, ok := s.sessions[projectID]; ok {
		s.mu.Unlock()
		sess.close()
		if err := manager.Clear(); err != nil {
			s.logger.Warn("discarding duplicate open", "project_id", projectID, "error", err)
		}
		return call(ctx, existing, func() (*models.ResourceTree, error) {
			return buildTree(existing), nil
		})
	}
	s.sessions[projectID] = sess
	s.mu.Unlock()

	tree, err := call(ctx, sess, func() (*models.ResourceTree, error) {
		var pending []*resource.Item
		for _, item := range resource.CollectItems(manager.Root().Items()) {
			if !item.IsOfflineByUser() {
				pending = append(pending, item)
			}
		}
		sess.opening = s.loads.loadInBackground(sess, pending)
		return buildTree(sess), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project opened",
		"project_id", projectID,
		"items", manager.Len(),
	)
	return tree, nil
}

// CloseProject destroys the tree without saving and stops the session
func (s *ResourceService) CloseProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[projectID]
	delete(s.sessions, projectID)
	s.mu.Unlock()
	if !ok {
		return notOpen(projectID)
	}
	defer sess.close()

	_, err := call(ctx, sess, func() (struct{}, error) {
		sess.cancel()
		return struct{}{}, sess.manager.Clear()
	})
	if err != nil {
		s.logger.Warn("errors while closing project", "project_id", projectID, "error", err)
		return err
	}
	s.logger.Info("project closed", "project_id", projectID)
	return nil
}

// Shutdown closes every open session. Unsaved changes are lost.
func (s *ResourceService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.CloseProject(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveProject serialises the tree on the owner goroutine and writes it outside it
func (s *ResourceService) SaveProject(ctx context.Context, projectID string) error {
	sess, err := s.session(projectID)
	if err != nil {
		return err
	}

	type snapshot struct {
		data    docmodel.Dict
		version uint64
	}
	snap, err := call(ctx, sess, func() (snapshot, error) {
		data := docmodel.NewDict()
		sess.manager.Serialise(data)
		return snapshot{data: data, version: sess.version}, nil
	})
	if err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Save(txCtx, &models.ResourceDocument{ProjectID: projectID, Data: snap.data}); err != nil {
			return err
		}
		return s.projectRepo.Touch(txCtx, projectID)
	})
	if err != nil {
		return err
	}

	sess.Post(func() {
		if sess.savedVersion < snap.version {
			sess.savedVersion = snap.version
		}
	})
	s.logger.Info("project saved", "project_id", projectID)
	return nil
}

// GetTree returns a snapshot of the open project's tree
func (s *ResourceService) GetTree(ctx context.Context, projectID string) (*models.ResourceTree, error) {
	sess, err := s.session(projectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() (*models.ResourceTree, error) {
		return buildTree(sess), nil
	})
}

// CreateFolder appends an empty folder to the parent folder
func (s *ResourceService) CreateFolder(ctx context.Context, req *svc.CreateFolderRequest) (*models.ResourceNode, error) {
	if err := s.validateCreateFolder(req); err != nil {
		return nil, err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() (*models.ResourceNode, error) {
		parent, err := resolveFolder(sess, req.Parent)
		if err != nil {
			return nil, err
		}
		folder := resource.NewFolder(strings.TrimSpace(req.Name))
		if err := parent.AddItem(folder); err != nil {
			return nil, err
		}
		node := nodeOf(folder)
		return &node, nil
	})
}

// CreateItem builds an item of a registered kind, appends it to the parent folder and,
// when asked, brings it online before returning.
func (s *ResourceService) CreateItem(ctx context.Context, req *svc.CreateItemRequest) (*models.ResourceNode, error) {
	if err := s.validateCreateItem(req); err != nil {
		return nil, err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return nil, err
	}

	content, err := s.registry.NewContent(req.Kind)
	if err != nil {
		return nil, err
	}
	if req.Data != nil {
		if err := content.Deserialise(req.Data); err != nil {
			return nil, fmt.Errorf("%w: data: %v", domain.ErrValidation, err)
		}
	}

	return call(ctx, sess, func() (*models.ResourceNode, error) {
		parent, err := resolveFolder(sess, req.Parent)
		if err != nil {
			return nil, err
		}
		item := resource.NewItem(strings.TrimSpace(req.Name), content)
		if err := parent.AddItem(item); err != nil {
			return nil, err
		}
		if req.Enable {
			if err := s.loads.loadNow(sess)(sess.ctx, []*resource.Item{item}); err != nil {
				s.logger.Warn("item created offline", "project_id", req.ProjectID, "kind", req.Kind, "error", err)
			}
		}
		node := nodeOf(item)
		return &node, nil
	})
}

// Rename changes a resource's display name
func (s *ResourceService) Rename(ctx context.Context, req *svc.RenameRequest) (*models.ResourceNode, error) {
	if err := validateRename(req); err != nil {
		return nil, err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() (*models.ResourceNode, error) {
		r, err := resolve(sess, req.Path)
		if err != nil {
			return nil, err
		}
		r.SetDisplayName(strings.TrimSpace(req.Name))
		node := nodeOf(r)
		return &node, nil
	})
}

// Delete removes and destroys resources. All paths are resolved before anything is
// removed; a path below another deleted path is covered by its ancestor.
func (s *ResourceService) Delete(ctx context.Context, req *svc.DeleteRequest) error {
	if err := validateDelete(req); err != nil {
		return err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return err
	}
	_, err = call(ctx, sess, func() (struct{}, error) {
		targets, err := resolveAll(sess, req.Paths)
		if err != nil {
			return struct{}{}, err
		}
		var errs []error
		for _, r := range outermost(targets) {
			items := resource.CollectItems([]resource.Resource{r})
			if _, err := r.Parent().RemoveItem(r, true); err != nil {
				errs = append(errs, err)
			}
			// after destroying, so a load still running cannot report against them again
			for _, item := range items {
				sess.loader.RemoveItem(item)
			}
		}
		return struct{}{}, errors.Join(errs...)
	})
	return err
}

// Move drops resources into the target folder
func (s *ResourceService) Move(ctx context.Context, req *svc.TransferRequest) (*models.TransferResult, error) {
	return s.transfer(ctx, req, resource.DropMove)
}

// Copy drops clones of resources into the target folder and loads them
func (s *ResourceService) Copy(ctx context.Context, req *svc.TransferRequest) (*models.TransferResult, error) {
	return s.transfer(ctx, req, resource.DropCopy)
}

func (s *ResourceService) transfer(ctx context.Context, req *svc.TransferRequest, dropType resource.DropType) (*models.TransferResult, error) {
	if err := validateTransfer(req); err != nil {
		return nil, err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() (*models.TransferResult, error) {
		target, err := resolveFolder(sess, req.Target)
		if err != nil {
			return nil, err
		}
		sources, err := resolveAll(sess, req.Paths)
		if err != nil {
			return nil, err
		}
		dropped, err := resource.DropResourceList(sess.ctx, target, sources, dropType, s.registry, s.loads.loadNow(sess))
		if err != nil && len(dropped) == 0 {
			return nil, err
		}
		if err != nil {
			s.logger.Warn("partial drop", "project_id", req.ProjectID, "drop_type", dropType.String(), "error", err)
		}
		return &models.TransferResult{
			DropType: dropType.String(),
			Nodes:    nodesOf(dropped),
		}, nil
	})
}

// DropFiles imports files into the target folder through the native drop handlers
func (s *ResourceService) DropFiles(ctx context.Context, req *svc.DropFilesRequest) (*models.DropFilesResult, error) {
	if err := validateDropFiles(req); err != nil {
		return nil, err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() (*models.DropFilesResult, error) {
		target, err := resolveFolder(sess, req.Target)
		if err != nil {
			return nil, err
		}
		res, err := s.natives.DropFiles(sess.ctx, target, req.Files, s.loads.loadNow(sess))
		if err != nil {
			return nil, err
		}
		unhandled := res.Unhandled
		if unhandled == nil {
			unhandled = []string{}
		}
		return &models.DropFilesResult{
			Created:   nodesOf(res.Created),
			Unhandled: unhandled,
		}, nil
	})
}

// SetOnline disables items as the user or brings them online through the loader
func (s *ResourceService) SetOnline(ctx context.Context, req *svc.SetOnlineRequest) (*models.SetOnlineResult, error) {
	if err := validateSetOnline(req); err != nil {
		return nil, err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() (*models.SetOnlineResult, error) {
		targets, err := resolveAll(sess, req.Paths)
		if err != nil {
			return nil, err
		}
		items := make([]*resource.Item, 0, len(targets))
		for _, r := range targets {
			item, ok := r.(*resource.Item)
			if !ok {
				return nil, &domain.ValidationError{Message: fmt.Sprintf("path %s is a folder", resource.PathOf(r))}
			}
			items = append(items, item)
		}

		result := &models.SetOnlineResult{Changed: []string{}, Failed: []string{}}
		if !req.Online {
			var errs []error
			for _, item := range items {
				if !item.IsOnline() {
					continue
				}
				path := resource.PathOf(item).String()
				if err := item.Disable(true); err != nil {
					errs = append(errs, err)
					result.Failed = append(result.Failed, path)
					continue
				}
				result.Changed = append(result.Changed, path)
			}
			sess.touchIf(len(result.Changed) > 0)
			return result, errors.Join(errs...)
		}

		var offline []*resource.Item
		for _, item := range items {
			if !item.IsOnline() {
				offline = append(offline, item)
			}
		}
		loadErr := s.loads.loadNow(sess)(sess.ctx, offline)
		for _, item := range offline {
			path := resource.PathOf(item).String()
			if item.IsOnline() {
				result.Changed = append(result.Changed, path)
			} else {
				result.Failed = append(result.Failed, path)
			}
		}
		sess.touchIf(len(result.Changed) > 0)
		return result, loadErr
	})
}

// ListLoadErrors returns the outstanding load failures in index order
func (s *ResourceService) ListLoadErrors(ctx context.Context, projectID string) ([]models.LoadError, error) {
	sess, err := s.session(projectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() ([]models.LoadError, error) {
		return loadErrorsOf(sess.loader.Entries()), nil
	})
}

// ResolveLoadError retries a load failure, re-pointing the item at FilePath when given
func (s *ResourceService) ResolveLoadError(ctx context.Context, req *svc.ResolveLoadErrorRequest) (bool, error) {
	if err := validateResolveLoadError(req); err != nil {
		return false, err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return false, err
	}
	return call(ctx, sess, func() (bool, error) {
		loadCtx, cancel := context.WithTimeout(sess.ctx, s.loads.timeout)
		defer cancel()
		ok, err := sess.loader.Resolve(loadCtx, req.Index, req.FilePath)
		sess.touchIf(ok && req.FilePath != "")
		return ok, err
	})
}

// SetCurrentFolder moves the manager's browsing cursor
func (s *ResourceService) SetCurrentFolder(ctx context.Context, req *svc.SetCurrentFolderRequest) error {
	if err := validateSetCurrentFolder(req); err != nil {
		return err
	}
	sess, err := s.session(req.ProjectID)
	if err != nil {
		return err
	}
	_, err = call(ctx, sess, func() (struct{}, error) {
		folder, err := resolveFolder(sess, req.Path)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, sess.manager.SetCurrentFolder(folder)
	})
	return err
}

// Census counts folders, items, references and online items below the root
func (s *ResourceService) Census(ctx context.Context, projectID string) (*models.Census, error) {
	sess, err := s.session(projectID)
	if err != nil {
		return nil, err
	}
	return call(ctx, sess, func() (*models.Census, error) {
		root := sess.manager.Root()
		c := root.CountHierarchy()
		online := 0
		for _, item := range resource.CollectItems(root.Items()) {
			if item.IsOnline() {
				online++
			}
		}
		return &models.Census{
			Folders:    c.Folders,
			Items:      c.Items,
			References: c.References,
			Online:     online,
		}, nil
	})
}

// lookup returns the live session of a project, forgetting one that closed itself
func (s *ResourceService) lookup(projectID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[projectID]
	if ok && sess.isClosed() {
		delete(s.sessions, projectID)
		s.logger.Warn("dropping closed session", "project_id", projectID)
		return nil
	}
	return sess
}

func (s *ResourceService) session(projectID string) (*session, error) {
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}
	sess := s.lookup(projectID)
	if sess == nil {
		return nil, notOpen(projectID)
	}
	return sess, nil
}

func notOpen(projectID string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("project %s is not open", projectID)}
}

func resolve(sess *session, path string) (resource.Resource, error) {
	p, err := resource.ParsePath(path)
	if err != nil {
		return nil, err
	}
	return p.Resolve(sess.manager.Root())
}

func resolveFolder(sess *session, path string) (*resource.Folder, error) {
	p, err := resource.ParsePath(path)
	if err != nil {
		return nil, err
	}
	return p.ResolveFolder(sess.manager.Root())
}

// resolveAll resolves every path, rejecting the root and duplicates
func resolveAll(sess *session, paths []string) ([]resource.Resource, error) {
	seen := make(map[resource.Resource]bool, len(paths))
	out := make([]resource.Resource, 0, len(paths))
	for _, path := range paths {
		r, err := resolve(sess, path)
		if err != nil {
			return nil, err
		}
		if r == resource.Resource(sess.manager.Root()) {
			return nil, &domain.ValidationError{Message: "the root folder cannot be used here"}
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}

// outermost drops every resource that sits below another one in the list
func outermost(resources []resource.Resource) []resource.Resource {
	folders := make(map[*resource.Folder]bool)
	for _, r := range resources {
		if f, ok := r.(*resource.Folder); ok {
			folders[f] = true
		}
	}
	out := make([]resource.Resource, 0, len(resources))
	for _, r := range resources {
		covered := false
		for p := r.Parent(); p != nil; p = p.Parent() {
			if folders[p] {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, r)
		}
	}
	return out
}
