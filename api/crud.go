package api

import (
	"github.com/goliatone/go-crud"
	"github.com/goliatone/go-reviewers/crudsvc"
	"github.com/goliatone/go-reviewers/ledger"
	"github.com/goliatone/go-reviewers/permission"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/service"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
)

// CRUDConfig wires the generic admin controllers.
type CRUDConfig struct {
	DB       *bun.DB
	Commands service.Commands
	Queries  service.Queries
	Actor    crudsvc.ActorResolver
	Logger   types.Logger
}

// RegisterCRUD mounts go-crud controllers for assignments, their events and
// permission profiles. Assignment state only changes through the review
// routes, so the ledger controllers are read-only. The controllers are
// returned so their metadata can be published.
func RegisterCRUD[T any](r router.Router[T], cfg CRUDConfig) []router.MetadataProvider {
	adapter := crud.NewGoRouterAdapter(r)
	opts := []crudsvc.ServiceOption{crudsvc.WithLogger(cfg.Logger), crudsvc.WithActorResolver(cfg.Actor)}

	assignmentService := crudsvc.NewAssignmentService(crudsvc.AssignmentServiceConfig{
		List:   cfg.Queries.AssignmentList,
		Detail: cfg.Queries.AssignmentDetail,
	}, opts...)
	assignmentController := crud.NewController(ledger.NewAssignmentRecordRepository(cfg.DB),
		crudsvc.WithCommandService[*ledger.AssignmentRecord](assignmentService),
		crud.WithRouteConfig[*ledger.AssignmentRecord](readOnlyRoutes()),
	)
	assignmentController.RegisterRoutes(adapter)

	eventController := crud.NewController(ledger.NewEventRecordRepository(cfg.DB),
		crud.WithRouteConfig[*ledger.EventRecord](readOnlyRoutes()),
	)
	eventController.RegisterRoutes(adapter)

	profileService := crudsvc.NewProfileService(crudsvc.ProfileServiceConfig{
		Upsert:     cfg.Commands.ProfileUpsert,
		Deactivate: cfg.Commands.ProfileDeactivate,
		List:       cfg.Queries.ProfileList,
	}, opts...)
	profileController := crud.NewController(permission.NewRecordRepository(cfg.DB),
		crudsvc.WithCommandService[*permission.Record](profileService),
		crud.WithRouteConfig[*permission.Record](crud.RouteConfig{
			Operations: map[crud.CrudOperation]crud.RouteOptions{
				crud.OpCreateBatch: {Enabled: crud.BoolPtr(false)},
				crud.OpUpdateBatch: {Enabled: crud.BoolPtr(false)},
				crud.OpDeleteBatch: {Enabled: crud.BoolPtr(false)},
			},
		}),
	)
	profileController.RegisterRoutes(adapter)

	return []router.MetadataProvider{assignmentController, eventController, profileController}
}

func readOnlyRoutes() crud.RouteConfig {
	return crud.RouteConfig{
		Operations: map[crud.CrudOperation]crud.RouteOptions{
			crud.OpCreate:      {Enabled: crud.BoolPtr(false)},
			crud.OpUpdate:      {Enabled: crud.BoolPtr(false)},
			crud.OpDelete:      {Enabled: crud.BoolPtr(false)},
			crud.OpCreateBatch: {Enabled: crud.BoolPtr(false)},
			crud.OpUpdateBatch: {Enabled: crud.BoolPtr(false)},
			crud.OpDeleteBatch: {Enabled: crud.BoolPtr(false)},
		},
	}
}
