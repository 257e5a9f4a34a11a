package crudsvc

import (
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-reviewers/command"
	"github.com/goliatone/go-reviewers/permission"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// ProfileServiceConfig wires the permission profile controller.
type ProfileServiceConfig struct {
	Upsert     gocommand.Commander[command.ProfileUpsertInput]
	Deactivate gocommand.Commander[command.ProfileDeactivateInput]
	List       gocommand.Querier[types.ProfileFilter, []types.PermissionProfile]
}

// ProfileService routes go-crud writes through the profile commands so each
// change is validated, audited and followed by a backlog pass.
type ProfileService struct {
	upsert     gocommand.Commander[command.ProfileUpsertInput]
	deactivate gocommand.Commander[command.ProfileDeactivateInput]
	list       gocommand.Querier[types.ProfileFilter, []types.PermissionProfile]
	actor      ActorResolver
	logger     types.Logger
}

// NewProfileService constructs the adapter.
func NewProfileService(cfg ProfileServiceConfig, opts ...ServiceOption) *ProfileService {
	options := applyOptions(opts)
	return &ProfileService{
		upsert:     cfg.Upsert,
		deactivate: cfg.Deactivate,
		list:       cfg.List,
		actor:      options.actor,
		logger:     options.logger,
	}
}

func (s *ProfileService) Create(ctx crud.Context, record *permission.Record) (*permission.Record, error) {
	return s.write(ctx, crud.OpCreate, record)
}

func (s *ProfileService) CreateBatch(crud.Context, []*permission.Record) ([]*permission.Record, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *ProfileService) Update(ctx crud.Context, record *permission.Record) (*permission.Record, error) {
	return s.write(ctx, crud.OpUpdate, record)
}

func (s *ProfileService) UpdateBatch(crud.Context, []*permission.Record) ([]*permission.Record, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

// Delete deactivates the profile. Rows are never removed so the assignment
// history keeps its meaning.
func (s *ProfileService) Delete(ctx crud.Context, record *permission.Record) error {
	if s.deactivate == nil {
		return missing("profile deactivate command")
	}
	if record == nil {
		return goerrors.New("profile required", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	target := *record
	if strings.TrimSpace(target.RoleName) == "" && record.ID != uuid.Nil {
		found, err := s.find(ctx, record.ID)
		if err != nil {
			return err
		}
		target = *found
	}
	return s.deactivate.Execute(ctx.UserContext(), command.ProfileDeactivateInput{
		RoleName:   target.RoleName,
		ReviewType: types.ReviewType(target.ReviewType),
		ActorID:    s.actor(ctx),
		Result:     &command.ProfileResult{},
	})
}

func (s *ProfileService) DeleteBatch(crud.Context, []*permission.Record) error {
	return notSupported(crud.OpDeleteBatch)
}

// Index lists profiles filtered by role, review_type and include_inactive.
func (s *ProfileService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*permission.Record, int, error) {
	if s.list == nil {
		return nil, 0, missing("profile list query")
	}
	profiles, err := s.list.Query(ctx.UserContext(), profileFilter(ctx))
	if err != nil {
		return nil, 0, err
	}
	records := make([]*permission.Record, 0, len(profiles))
	for _, profile := range profiles {
		records = append(records, permission.RecordFromProfile(profile))
	}
	return records, len(records), nil
}

func (s *ProfileService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*permission.Record, error) {
	if s.list == nil {
		return nil, missing("profile list query")
	}
	profileID, err := uuid.Parse(id)
	if err != nil {
		return nil, goerrors.New("invalid profile id", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	return s.find(ctx, profileID)
}

func (s *ProfileService) write(ctx crud.Context, op crud.CrudOperation, record *permission.Record) (*permission.Record, error) {
	if s.upsert == nil {
		return nil, missing("profile upsert command")
	}
	if record == nil {
		return nil, goerrors.New("profile required", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	active := record.Active || op == crud.OpCreate
	result := command.ProfileResult{}
	err := s.upsert.Execute(ctx.UserContext(), command.ProfileUpsertInput{
		RoleName:             record.RoleName,
		ReviewType:           types.ReviewType(record.ReviewType),
		CanAssignReviewer:    record.CanAssignReviewer,
		CanSelfReview:        record.CanSelfReview,
		AutoAssignment:       &record.AutoAssignment,
		Weight:               record.Weight,
		MaxConcurrentReviews: record.MaxConcurrentReviews,
		PriorityLevel:        record.PriorityLevel,
		Active:               &active,
		ActorID:              s.actor(ctx),
		Result:               &result,
	})
	if err != nil {
		return nil, err
	}
	if result.Backlog != nil && len(result.Backlog.Assigned) > 0 {
		s.logger.Info("profile write released backlog", "role", record.RoleName, "assigned", len(result.Backlog.Assigned))
	}
	if result.Profile == nil {
		return record, nil
	}
	return permission.RecordFromProfile(*result.Profile), nil
}

func (s *ProfileService) find(ctx crud.Context, id uuid.UUID) (*permission.Record, error) {
	profiles, err := s.list.Query(ctx.UserContext(), types.ProfileFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	for _, profile := range profiles {
		if profile.ID == id {
			return permission.RecordFromProfile(profile), nil
		}
	}
	return nil, goerrors.New("profile not found", goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)
}
