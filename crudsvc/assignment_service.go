package crudsvc

import (
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-reviewers/ledger"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/query"
	"github.com/google/uuid"
)

// AssignmentServiceConfig wires the read side of the assignment controller.
type AssignmentServiceConfig struct {
	List   gocommand.Querier[types.AssignmentFilter, types.AssignmentPage]
	Detail gocommand.Querier[query.AssignmentDetailInput, query.AssignmentDetail]
}

// AssignmentService is a read-only go-crud service over the ledger. Writes
// go through the assignment commands, never the generic controller.
type AssignmentService struct {
	list   gocommand.Querier[types.AssignmentFilter, types.AssignmentPage]
	detail gocommand.Querier[query.AssignmentDetailInput, query.AssignmentDetail]
	logger types.Logger
}

// NewAssignmentService constructs the adapter.
func NewAssignmentService(cfg AssignmentServiceConfig, opts ...ServiceOption) *AssignmentService {
	options := applyOptions(opts)
	return &AssignmentService{
		list:   cfg.List,
		detail: cfg.Detail,
		logger: options.logger,
	}
}

func (s *AssignmentService) Create(crud.Context, *ledger.AssignmentRecord) (*ledger.AssignmentRecord, error) {
	return nil, notSupported(crud.OpCreate)
}

func (s *AssignmentService) CreateBatch(crud.Context, []*ledger.AssignmentRecord) ([]*ledger.AssignmentRecord, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *AssignmentService) Update(crud.Context, *ledger.AssignmentRecord) (*ledger.AssignmentRecord, error) {
	return nil, notSupported(crud.OpUpdate)
}

func (s *AssignmentService) UpdateBatch(crud.Context, []*ledger.AssignmentRecord) ([]*ledger.AssignmentRecord, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

func (s *AssignmentService) Delete(crud.Context, *ledger.AssignmentRecord) error {
	return notSupported(crud.OpDelete)
}

func (s *AssignmentService) DeleteBatch(crud.Context, []*ledger.AssignmentRecord) error {
	return notSupported(crud.OpDeleteBatch)
}

// Index lists assignments filtered by task_id, reviewer_id, status (comma
// separated) and review_type.
func (s *AssignmentService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*ledger.AssignmentRecord, int, error) {
	if s.list == nil {
		return nil, 0, missing("assignment list query")
	}
	page, err := s.list.Query(ctx.UserContext(), assignmentFilter(ctx))
	if err != nil {
		return nil, 0, err
	}
	records := make([]*ledger.AssignmentRecord, 0, len(page.Assignments))
	for _, assignment := range page.Assignments {
		records = append(records, ledger.RecordFromAssignment(assignment))
	}
	return records, page.Total, nil
}

func (s *AssignmentService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*ledger.AssignmentRecord, error) {
	if s.detail == nil {
		return nil, missing("assignment detail query")
	}
	assignmentID, err := uuid.Parse(id)
	if err != nil {
		return nil, goerrors.New("invalid assignment id", goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
	}
	detail, err := s.detail.Query(ctx.UserContext(), query.AssignmentDetailInput{AssignmentID: assignmentID})
	if err != nil {
		return nil, err
	}
	return ledger.RecordFromAssignment(detail.Assignment), nil
}
