package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires dependencies for the Bun-backed profile store.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type profileStore interface {
	repository.Repository[*Record]
}

// Repository implements types.ProfileStore and types.ProfileAdmin.
//
// The profile table holds one row per (role, review type) so every read
// loads the full table through a single listing. That listing is the only
// query the cache decorator needs to serve.
type Repository struct {
	profileStore
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the default profile repository.
func NewRepository(cfg RepositoryConfig, opts ...RepositoryOption) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("permission: db or repository required")
	}
	options := applyRepositoryOptions(opts)
	repo := cfg.Repository
	if repo == nil {
		repo = NewRecordRepository(cfg.DB)
	}
	if options.CacheEnabled {
		if _, ok := repo.(*repositorycache.CachedRepository[*Record]); !ok {
			cacheCfg := cache.DefaultConfig()
			if options.CacheConfig != nil {
				cacheCfg = *options.CacheConfig
			}
			cacheService, err := cache.NewCacheService(cacheCfg)
			if err != nil {
				return nil, fmt.Errorf("permission: cache service: %w", err)
			}
			repo = repositorycache.New(repo, cacheService, cache.NewDefaultKeySerializer())
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &Repository{
		profileStore: repo,
		clock:        clock,
		idGen:        idGen,
	}, nil
}

// NewRecordRepository builds the plain go-repository-bun repository for
// profile records.
func NewRecordRepository(db *bun.DB) repository.Repository[*Record] {
	return repository.NewRepository(db, repository.ModelHandlers[*Record]{
		NewRecord: func() *Record { return &Record{} },
		GetID: func(rec *Record) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *Record, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.ProfileStore             = (*Repository)(nil)
	_ types.ProfileAdmin             = (*Repository)(nil)
)

// GetProfile returns the profile for the (role, review type) pair, active or not.
func (r *Repository) GetProfile(ctx context.Context, role string, reviewType types.ReviewType) (*types.PermissionProfile, error) {
	rec, err := r.find(ctx, role, reviewType)
	if err != nil {
		return nil, err
	}
	return toDomainPtr(rec), nil
}

// ListActiveProfiles returns the active profiles for the review type ordered by role.
func (r *Repository) ListActiveProfiles(ctx context.Context, reviewType types.ReviewType) ([]types.PermissionProfile, error) {
	return r.ListProfiles(ctx, types.ProfileFilter{ReviewType: reviewType})
}

// HasPermission reports whether an active profile exists for the pair.
func (r *Repository) HasPermission(ctx context.Context, role string, reviewType types.ReviewType) (bool, error) {
	profile, err := r.GetProfile(ctx, role, reviewType)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return profile.Active, nil
}

// CanAssignReviewer reports whether any active profile of the role allows
// manual assignment.
func (r *Repository) CanAssignReviewer(ctx context.Context, role string) (bool, error) {
	return r.anyActive(ctx, role, func(rec *Record) bool { return rec.CanAssignReviewer })
}

// CanSelfReview reports whether any active profile of the role allows
// reviewing one's own content.
func (r *Repository) CanSelfReview(ctx context.Context, role string) (bool, error) {
	return r.anyActive(ctx, role, func(rec *Record) bool { return rec.CanSelfReview })
}

// ListProfiles returns profiles matching the filter ordered by role then type.
func (r *Repository) ListProfiles(ctx context.Context, filter types.ProfileFilter) ([]types.PermissionProfile, error) {
	records, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	role := strings.TrimSpace(filter.RoleName)
	reviewType := filter.ReviewType.Normalize()
	out := make([]types.PermissionProfile, 0, len(records))
	for _, rec := range records {
		if !filter.IncludeInactive && !rec.Active {
			continue
		}
		if role != "" && rec.RoleName != role {
			continue
		}
		if reviewType != "" && types.ReviewType(rec.ReviewType) != reviewType {
			continue
		}
		out = append(out, toDomain(rec))
	}
	return out, nil
}

// UpsertProfile creates or replaces the profile for its (role, review type)
// pair. Zero limits take the documented defaults.
func (r *Repository) UpsertProfile(ctx context.Context, profile types.PermissionProfile) (*types.PermissionProfile, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	profile = profile.WithDefaults()
	now := r.clock.Now()
	payload := fromDomain(profile)
	payload.UpdatedAt = now

	existing, err := r.find(ctx, profile.RoleName, profile.ReviewType)
	switch {
	case err == nil:
		payload.ID = existing.ID
		payload.CreatedAt = existing.CreatedAt
		payload.CreatedBy = existing.CreatedBy
		if payload.UpdatedBy == uuid.Nil {
			payload.UpdatedBy = existing.UpdatedBy
		}
		updated, err := r.Update(ctx, payload)
		if err != nil {
			return nil, err
		}
		return toDomainPtr(updated), nil
	case errors.Is(err, types.ErrNotFound):
		payload.ID = r.idGen.UUID()
		payload.CreatedAt = now
		if payload.CreatedBy == uuid.Nil {
			payload.CreatedBy = payload.UpdatedBy
		}
		created, err := r.Create(ctx, payload)
		if err != nil {
			if repository.IsDuplicatedKey(err) {
				return nil, fmt.Errorf("%w: profile for %s/%s already exists", types.ErrInvalidProfile, profile.RoleName, profile.ReviewType)
			}
			return nil, err
		}
		return toDomainPtr(created), nil
	default:
		return nil, err
	}
}

// DeactivateProfile flips the profile to inactive, excluding it from resolution.
func (r *Repository) DeactivateProfile(ctx context.Context, role string, reviewType types.ReviewType, actor uuid.UUID) (*types.PermissionProfile, error) {
	existing, err := r.find(ctx, role, reviewType)
	if err != nil {
		return nil, err
	}
	if !existing.Active {
		return toDomainPtr(existing), nil
	}
	payload := *existing
	payload.Active = false
	payload.UpdatedAt = r.clock.Now()
	if actor != uuid.Nil {
		payload.UpdatedBy = actor
	}
	updated, err := r.Update(ctx, &payload)
	if err != nil {
		return nil, err
	}
	return toDomainPtr(updated), nil
}

func (r *Repository) find(ctx context.Context, role string, reviewType types.ReviewType) (*Record, error) {
	role = strings.TrimSpace(role)
	reviewType = reviewType.Normalize()
	if role == "" {
		return nil, types.ErrRoleRequired
	}
	if reviewType == "" {
		return nil, types.ErrReviewTypeRequired
	}
	records, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.RoleName == role && types.ReviewType(rec.ReviewType) == reviewType {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: profile %s/%s", types.ErrNotFound, role, reviewType)
}

func (r *Repository) anyActive(ctx context.Context, role string, flag func(*Record) bool) (bool, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return false, nil
	}
	records, err := r.all(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.RoleName == role && rec.Active && flag(rec) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) all(ctx context.Context) ([]*Record, error) {
	records, _, err := r.List(ctx, orderProfiles)
	return records, err
}

func orderProfiles(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("role_name ASC").OrderExpr("review_type ASC")
}

func validateProfile(profile types.PermissionProfile) error {
	switch {
	case strings.TrimSpace(profile.RoleName) == "":
		return types.ErrRoleRequired
	case profile.ReviewType.Normalize() == "":
		return types.ErrReviewTypeRequired
	case profile.Weight < 0:
		return fmt.Errorf("%w: weight must be positive", types.ErrInvalidProfile)
	case profile.MaxConcurrentReviews < 0:
		return fmt.Errorf("%w: max concurrent reviews must be positive", types.ErrInvalidProfile)
	case profile.PriorityLevel < 0:
		return fmt.Errorf("%w: priority level must be at least 1", types.ErrInvalidProfile)
	default:
		return nil
	}
}

func fromDomain(profile types.PermissionProfile) *Record {
	return &Record{
		ID:                   profile.ID,
		RoleName:             profile.RoleName,
		ReviewType:           string(profile.ReviewType),
		CanAssignReviewer:    profile.CanAssignReviewer,
		CanSelfReview:        profile.CanSelfReview,
		AutoAssignment:       profile.AutoAssignment,
		Weight:               profile.Weight,
		MaxConcurrentReviews: profile.MaxConcurrentReviews,
		PriorityLevel:        profile.PriorityLevel,
		Active:               profile.Active,
		CreatedBy:            profile.CreatedBy,
		UpdatedBy:            profile.UpdatedBy,
		CreatedAt:            profile.CreatedAt,
		UpdatedAt:            profile.UpdatedAt,
	}
}

func toDomain(rec *Record) types.PermissionProfile {
	return types.PermissionProfile{
		ID:                   rec.ID,
		RoleName:             rec.RoleName,
		ReviewType:           types.ReviewType(rec.ReviewType),
		CanAssignReviewer:    rec.CanAssignReviewer,
		CanSelfReview:        rec.CanSelfReview,
		AutoAssignment:       rec.AutoAssignment,
		Weight:               rec.Weight,
		MaxConcurrentReviews: rec.MaxConcurrentReviews,
		PriorityLevel:        rec.PriorityLevel,
		Active:               rec.Active,
		CreatedBy:            rec.CreatedBy,
		UpdatedBy:            rec.UpdatedBy,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

func toDomainPtr(rec *Record) *types.PermissionProfile {
	if rec == nil {
		return nil
	}
	profile := toDomain(rec)
	return &profile
}

// RecordFromProfile maps a domain profile onto its table row.
func RecordFromProfile(profile types.PermissionProfile) *Record {
	return fromDomain(profile)
}
