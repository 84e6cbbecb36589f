package accesscodes

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/pkg/db"
	"github.com/studyloop/studyloop-backend/pkg/db/models"
	pkgerrors "github.com/studyloop/studyloop-backend/pkg/errors"
	pkgpagination "github.com/studyloop/studyloop-backend/pkg/pagination"
)

// codeAlphabet drops the easily confused characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// codeLength is the fixed length of every generated code.
const codeLength = 10

// maxInsertAttempts bounds the retry loop when a generated code collides
// with an existing row.
const maxInsertAttempts = 5

type codesRepository interface {
	Create(ctx context.Context, code *models.AccessCode) (*models.AccessCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AccessCode, error)
	List(ctx context.Context, q listQuery) ([]models.AccessCode, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkDelete(ctx context.Context, ids []uuid.UUID, courseID *uuid.UUID, onlyUnused bool) (int64, error)
}

type coursesRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type usersRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service exposes admin-side code management: batch generation, listing,
// and deletion. Redemption lives in the entitlements service.
type Service interface {
	GenerateCodes(ctx context.Context, issuerID uuid.UUID, input GenerateInput) ([]models.AccessCode, error)
	ListCodes(ctx context.Context, params ListParams) (*ListResult, error)
	DeleteCode(ctx context.Context, codeID uuid.UUID) error
	BulkDeleteCodes(ctx context.Context, input BulkDeleteInput) (int64, error)
}

type service struct {
	repo     codesRepository
	courses  coursesRepository
	users    usersRepository
	codeTTL  time.Duration
	maxBatch int
	now      func() time.Time
}

// GenerateInput describes one batch-generation request.
type GenerateInput struct {
	CourseID      uuid.UUID
	Quantity      int
	AccessStartAt time.Time
	AccessEndAt   time.Time
	CodeExpiresAt *time.Time
}

// ListParams filters and pages the admin code listing. RedeemerEmail narrows
// the page to codes redeemed by the matching user.
type ListParams struct {
	CourseID      *uuid.UUID
	Search        string
	Used          *bool
	RedeemerEmail string
	Page          pkgpagination.Params
}

// ListResult is one page of codes plus paging metadata.
type ListResult struct {
	Items []models.AccessCode
	Meta  pkgpagination.Meta
}

// BulkDeleteInput scopes a multi-code delete.
type BulkDeleteInput struct {
	CodeIDs    []uuid.UUID
	CourseID   *uuid.UUID
	OnlyUnused bool
}

// NewService builds the code management service.
func NewService(repo codesRepository, courses coursesRepository, users usersRepository, codeTTL time.Duration, maxBatch int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("access code repository required")
	}
	if courses == nil {
		return nil, fmt.Errorf("courses repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if codeTTL <= 0 {
		return nil, fmt.Errorf("code ttl must be positive")
	}
	if maxBatch <= 0 {
		return nil, fmt.Errorf("max batch size must be positive")
	}
	return &service{
		repo:     repo,
		courses:  courses,
		users:    users,
		codeTTL:  codeTTL,
		maxBatch: maxBatch,
		now:      time.Now,
	}, nil
}

func (s *service) GenerateCodes(ctx context.Context, issuerID uuid.UUID, input GenerateInput) ([]models.AccessCode, error) {
	if issuerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issuer identity missing")
	}
	if input.CourseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course_id is required")
	}
	if input.Quantity < 1 || input.Quantity > s.maxBatch {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity must be between 1 and %d", s.maxBatch))
	}
	if input.AccessStartAt.IsZero() || input.AccessEndAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access window is required")
	}
	if !input.AccessEndAt.After(input.AccessStartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access_end_at must be after access_start_at")
	}

	now := s.now()
	codeExpiresAt := now.Add(s.codeTTL)
	if input.CodeExpiresAt != nil {
		if !input.CodeExpiresAt.After(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "code_expires_at must be in the future")
		}
		codeExpiresAt = *input.CodeExpiresAt
	}

	exists, err := s.courses.Exists(ctx, input.CourseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup course")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}

	created := make([]models.AccessCode, 0, input.Quantity)
	for i := 0; i < input.Quantity; i++ {
		row, err := s.insertWithRetry(ctx, input, issuerID, codeExpiresAt)
		if err != nil {
			return nil, err
		}
		created = append(created, *row)
	}
	return created, nil
}

// insertWithRetry draws fresh candidates until one lands. The unique index
// on the code column is the collision arbiter.
func (s *service) insertWithRetry(ctx context.Context, input GenerateInput, issuerID uuid.UUID, codeExpiresAt time.Time) (*models.AccessCode, error) {
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		candidate, err := randomCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
		}
		row, err := s.repo.Create(ctx, &models.AccessCode{
			Code:          candidate,
			CourseID:      input.CourseID,
			AccessStartAt: input.AccessStartAt,
			AccessEndAt:   input.AccessEndAt,
			CodeExpiresAt: codeExpiresAt,
			IssuedBy:      issuerID,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "uq_access_codes_code") {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert access code")
		}
		return row, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not generate a unique code")
}

func (s *service) ListCodes(ctx context.Context, params ListParams) (*ListResult, error) {
	page := pkgpagination.Normalize(params.Page)

	var redeemedBy *uuid.UUID
	if email := strings.TrimSpace(params.RedeemerEmail); email != "" {
		user, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup redeemer")
		}
		if user == nil {
			// No such user means no matching codes.
			return &ListResult{Meta: pkgpagination.NewMeta(page, 0)}, nil
		}
		redeemedBy = &user.ID
	}

	rows, total, err := s.repo.List(ctx, listQuery{
		courseID: params.CourseID,
		search:   strings.TrimSpace(params.Search),
		used:     params.Used,
		usedBy:   redeemedBy,
		offset:   page.Offset(),
		limit:    page.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list access codes")
	}
	return &ListResult{
		Items: rows,
		Meta:  pkgpagination.NewMeta(page, total),
	}, nil
}

func (s *service) DeleteCode(ctx context.Context, codeID uuid.UUID) error {
	if codeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "code id is required")
	}
	row, err := s.repo.FindByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "access code not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup access code")
	}
	if row.IsUsed() {
		return pkgerrors.New(pkgerrors.CodeConflict, "used codes cannot be deleted")
	}
	if err := s.repo.Delete(ctx, codeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete access code")
	}
	return nil
}

func (s *service) BulkDeleteCodes(ctx context.Context, input BulkDeleteInput) (int64, error) {
	if len(input.CodeIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "code_ids is required")
	}
	if len(input.CodeIDs) > s.maxBatch {
		return 0, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at most %d codes per request", s.maxBatch))
	}
	deleted, err := s.repo.BulkDelete(ctx, input.CodeIDs, input.CourseID, input.OnlyUnused)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bulk delete access codes")
	}
	return deleted, nil
}

// listQuery is the repo-level shape of a code listing.
type listQuery struct {
	courseID *uuid.UUID
	search   string
	used     *bool
	usedBy   *uuid.UUID
	offset   int
	limit    int
}

func randomCode() (string, error) {
	var b strings.Builder
	b.Grow(codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
