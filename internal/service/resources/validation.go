package resources

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"framekit/internal/config"
	"framekit/internal/domain"
	svc "framekit/internal/domain/services"
	"framekit/internal/resource"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// indexPath matches "", "3" and "0/12/4" (leading and trailing slashes allowed)
var indexPath = regexp.MustCompile(`^/?(\d+(/\d+)*)?/?$`)

var pathRules = []validation.Rule{
	validation.Length(0, config.MaxPathLength),
	validation.Match(indexPath).Error("must be an index path like 0/2/1"),
}

// validationError wraps ozzo errors so errors.Is(err, domain.ErrValidation) holds
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func validateProjectID(id string) error {
	return validationError(validation.Validate(id, validation.Required.Error("project id is required")))
}

func resourceNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(1, config.MaxResourceNameLength),
		validation.By(notBlank),
	}
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func validatePathList(paths []string) validation.Rule {
	return validation.By(func(interface{}) error {
		for _, p := range paths {
			if err := validation.Validate(p, pathRules...); err != nil {
				return fmt.Errorf("%q %v", p, err)
			}
		}
		return nil
	})
}

func (s *ResourceService) validateCreateFolder(req *svc.CreateFolderRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Parent, pathRules...),
		validation.Field(&req.Name, resourceNameRules()...),
	))
}

func (s *ResourceService) validateCreateItem(req *svc.CreateItemRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Parent, pathRules...),
		validation.Field(&req.Name, resourceNameRules()...),
		validation.Field(&req.Kind,
			validation.Required,
			validation.NotIn(resource.FolderKind).Error("use the folders endpoint to create folders"),
			validation.By(s.knownKind),
		),
	))
}

func (s *ResourceService) knownKind(value interface{}) error {
	kind, _ := value.(string)
	if !s.registry.IsKnown(kind) {
		return fmt.Errorf("unknown kind %q (known: %s)", kind, strings.Join(s.registry.Kinds(), ", "))
	}
	return nil
}

func validateRename(req *svc.RenameRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Path, append([]validation.Rule{validation.Required.Error("cannot rename the root folder")}, pathRules...)...),
		validation.Field(&req.Name, resourceNameRules()...),
	))
}

func validateDelete(req *svc.DeleteRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Paths,
			validation.Required,
			validation.Length(1, config.MaxDropBatchSize),
			validatePathList(req.Paths),
		),
	))
}

func validateTransfer(req *svc.TransferRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Target, pathRules...),
		validation.Field(&req.Paths,
			validation.Required,
			validation.Length(1, config.MaxDropBatchSize),
			validatePathList(req.Paths),
		),
	))
}

func validateDropFiles(req *svc.DropFilesRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Target, pathRules...),
		validation.Field(&req.Files,
			validation.Required,
			validation.Length(1, config.MaxDropBatchSize),
			validation.By(func(interface{}) error {
				for _, f := range req.Files {
					if len(f) > config.MaxPathLength || !filepath.IsAbs(f) {
						return fmt.Errorf("%q must be an absolute file path", f)
					}
				}
				return nil
			}),
		),
	))
}

func validateSetOnline(req *svc.SetOnlineRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Paths,
			validation.Required,
			validation.Length(1, config.MaxDropBatchSize),
			validatePathList(req.Paths),
		),
	))
}

func validateResolveLoadError(req *svc.ResolveLoadErrorRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Index, validation.Min(0)),
		validation.Field(&req.FilePath,
			validation.Length(0, config.MaxPathLength),
			validation.When(req.FilePath != "", validation.By(func(interface{}) error {
				if !filepath.IsAbs(req.FilePath) {
					return errors.New("must be an absolute file path")
				}
				return nil
			})),
		),
	))
}

func validateSetCurrentFolder(req *svc.SetCurrentFolderRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Path, pathRules...),
	))
}
