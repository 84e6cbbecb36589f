package entitlements

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/wallet"
	"github.com/studyloop/studyloop-backend/pkg/db/models"
	"github.com/studyloop/studyloop-backend/pkg/enums"
	pkgerrors "github.com/studyloop/studyloop-backend/pkg/errors"
	"github.com/studyloop/studyloop-backend/pkg/logger"
)

type codesRepository interface {
	FindRedeemable(ctx context.Context, code string, now time.Time) (*models.AccessCode, error)
	FindByCode(ctx context.Context, code string) (*models.AccessCode, error)
	MarkFirstUse(ctx context.Context, codeID, userID uuid.UUID, at time.Time) error
	AppendUsage(ctx context.Context, usage *models.AccessCodeUsage) error
}

type grantsRepository interface {
	Latest(ctx context.Context, userID, courseID uuid.UUID) (*models.AccessGrant, error)
	BestActive(ctx context.Context, userID, courseID uuid.UUID, now time.Time, sources ...enums.AccessSource) (*models.AccessGrant, error)
	ExtendOrCreate(ctx context.Context, grant *models.AccessGrant) (*models.AccessGrant, error)
}

type contentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindLesson(ctx context.Context, courseID, lessonID uuid.UUID, unitID *uuid.UUID) (*models.Lesson, error)
	FindVideo(ctx context.Context, lessonID, videoID uuid.UUID) (*models.Video, error)
}

type walletRecorder interface {
	RecordRedemption(ctx context.Context, input wallet.RedemptionRecord) error
}

// Actor is the authenticated caller of an entitlement operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// Decision is the outcome of a redemption or access check. AccessEndAt is
// nil when the entitlement has no expiry. RequiresCode is set on denied
// video checks where redeeming a code would open access.
type Decision struct {
	Allowed      bool
	Source       enums.AccessSource
	AccessEndAt  *time.Time
	GrantID      *uuid.UUID
	RequiresCode bool
}

// RedeemCourseInput redeems a code for a whole course.
type RedeemCourseInput struct {
	Code     string
	CourseID uuid.UUID
}

// VideoRef addresses one video inside a course, optionally through a unit.
type VideoRef struct {
	CourseID uuid.UUID
	LessonID uuid.UUID
	VideoID  uuid.UUID
	UnitID   *uuid.UUID
}

func (ref VideoRef) validate() error {
	if ref.CourseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "course_id is required")
	}
	if ref.LessonID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lesson_id is required")
	}
	if ref.VideoID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "video_id is required")
	}
	return nil
}

// RedeemVideoInput redeems a code for a single video.
type RedeemVideoInput struct {
	Code string
	VideoRef
}

// Service evaluates and mutates a user's course entitlements. Redemption
// extends grants, access checks never write.
type Service interface {
	RedeemCourseCode(ctx context.Context, actor Actor, input RedeemCourseInput) (*Decision, error)
	RedeemVideoCode(ctx context.Context, actor Actor, input RedeemVideoInput) (*Decision, error)
	CheckCourseAccess(ctx context.Context, actor Actor, courseID uuid.UUID) (*Decision, error)
	CheckVideoAccess(ctx context.Context, actor Actor, ref VideoRef) (*Decision, error)
}

type service struct {
	codes        codesRepository
	grants       grantsRepository
	content      contentRepository
	wallet       walletRecorder
	logg         *logger.Logger
	adminHorizon time.Duration
	privileged   func(enums.UserRole) bool
	now          func() time.Time
}

// NewService builds the entitlement service. The privileged predicate
// decides which roles bypass code checks; nil falls back to the role's own
// IsPrivileged.
func NewService(codes codesRepository, grants grantsRepository, content contentRepository, walletSvc walletRecorder, logg *logger.Logger, adminHorizon time.Duration, privileged func(enums.UserRole) bool) (Service, error) {
	if codes == nil {
		return nil, fmt.Errorf("access code repository required")
	}
	if grants == nil {
		return nil, fmt.Errorf("grants repository required")
	}
	if content == nil {
		return nil, fmt.Errorf("content repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if adminHorizon <= 0 {
		return nil, fmt.Errorf("admin horizon must be positive")
	}
	if privileged == nil {
		privileged = enums.UserRole.IsPrivileged
	}
	return &service{
		codes:        codes,
		grants:       grants,
		content:      content,
		wallet:       walletSvc,
		logg:         logg,
		adminHorizon: adminHorizon,
		privileged:   privileged,
		now:          time.Now,
	}, nil
}

func (s *service) RedeemCourseCode(ctx context.Context, actor Actor, input RedeemCourseInput) (*Decision, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.CourseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course_id is required")
	}

	now := s.now()
	code, err := s.resolveCode(ctx, input.Code, input.CourseID, now)
	if err != nil {
		return nil, err
	}

	course, err := s.content.FindByID(ctx, input.CourseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup course")
	}
	if course == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}

	// Re-check the window at commit: an unused code stays redeemable on
	// code_expires_at alone even after its access window lapses.
	if !code.AccessEndAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeWindowExpired, "access window closed")
	}

	grant, err := s.grants.ExtendOrCreate(ctx, &models.AccessGrant{
		UserID:        actor.ID,
		CourseID:      input.CourseID,
		AccessStartAt: code.AccessStartAt,
		AccessEndAt:   code.AccessEndAt,
		Source:        enums.AccessSourceCode,
		CodeID:        &code.ID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend access grant")
	}

	if err := s.recordRedemption(ctx, actor.ID, code, now, nil, nil); err != nil {
		return nil, err
	}
	s.postWalletEntry(ctx, actor.ID, code.Code, enums.WalletTransactionTypeAccessCode, "Access code redeemed for "+course.Title)

	return &Decision{
		Allowed:     true,
		Source:      enums.AccessSourceCode,
		AccessEndAt: &grant.AccessEndAt,
		GrantID:     &grant.ID,
	}, nil
}

func (s *service) RedeemVideoCode(ctx context.Context, actor Actor, input RedeemVideoInput) (*Decision, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if err := input.VideoRef.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	if s.privileged(actor.Role) {
		return s.grantAdminAccess(ctx, actor.ID, input.CourseID, now)
	}

	code, err := s.resolveCode(ctx, input.Code, input.CourseID, now)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.resolveVideo(ctx, input.VideoRef); err != nil {
		return nil, err
	}

	// Re-check the window at commit, same as course redemption.
	if !code.AccessEndAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeWindowExpired, "access window closed")
	}

	grant, err := s.grants.ExtendOrCreate(ctx, &models.AccessGrant{
		UserID:        actor.ID,
		CourseID:      input.CourseID,
		AccessStartAt: code.AccessStartAt,
		AccessEndAt:   code.AccessEndAt,
		Source:        enums.AccessSourceCode,
		CodeID:        &code.ID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend access grant")
	}

	if err := s.recordRedemption(ctx, actor.ID, code, now, &input.LessonID, &input.VideoID); err != nil {
		return nil, err
	}
	s.postWalletEntry(ctx, actor.ID, code.Code, enums.WalletTransactionTypeVideoAccessCode, "Video access code redeemed")

	return &Decision{
		Allowed:     true,
		Source:      enums.AccessSourceVideoCode,
		AccessEndAt: &grant.AccessEndAt,
		GrantID:     &grant.ID,
	}, nil
}

func (s *service) CheckCourseAccess(ctx context.Context, actor Actor, courseID uuid.UUID) (*Decision, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course_id is required")
	}

	exists, err := s.content.Exists(ctx, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup course")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}

	now := s.now()
	if s.privileged(actor.Role) {
		end := now.Add(s.adminHorizon)
		return &Decision{Allowed: true, Source: enums.AccessSourceAdmin, AccessEndAt: &end}, nil
	}

	grant, err := s.grants.Latest(ctx, actor.ID, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup access grant")
	}
	if grant == nil {
		return &Decision{Allowed: false}, nil
	}

	// A lapsed grant still reports its window and source so the client can
	// tell "expired" from "never had access".
	end := grant.AccessEndAt
	return &Decision{
		Allowed:     end.After(now),
		Source:      grant.Source,
		AccessEndAt: &end,
		GrantID:     &grant.ID,
	}, nil
}

func (s *service) CheckVideoAccess(ctx context.Context, actor Actor, ref VideoRef) (*Decision, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	lesson, _, err := s.resolveVideo(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if s.privileged(actor.Role) {
		end := now.Add(s.adminHorizon)
		return &Decision{Allowed: true, Source: enums.AccessSourceAdmin, AccessEndAt: &end}, nil
	}

	if lesson.Price.IsZero() {
		return &Decision{Allowed: true, Source: enums.AccessSourceFree}, nil
	}

	grant, err := s.grants.BestActive(ctx, actor.ID, ref.CourseID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup access grant")
	}
	if grant == nil {
		return &Decision{Allowed: false, RequiresCode: true}, nil
	}

	// Course-level code grants satisfy video access; report the derived
	// source so clients can tell the paths apart.
	source := grant.Source
	if source == enums.AccessSourceCode {
		source = enums.AccessSourceVideoCode
	}
	return decisionFromGrant(grant, source), nil
}

// resolveCode validates the raw code string against the target course at the
// given instant and returns the row when it is redeemable.
func (s *service) resolveCode(ctx context.Context, raw string, courseID uuid.UUID, now time.Time) (*models.AccessCode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	code, err := s.codes.FindRedeemable(ctx, trimmed, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup access code")
	}
	if code != nil {
		if code.CourseID != courseID {
			return nil, pkgerrors.New(pkgerrors.CodeCourseMismatch, "code issued for a different course")
		}
		return code, nil
	}

	// Not redeemable. Pull the raw row to report why.
	code, err = s.codes.FindByCode(ctx, trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup access code")
	}
	switch {
	case code == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCode, "code not found")
	case code.CourseID != courseID:
		return nil, pkgerrors.New(pkgerrors.CodeCourseMismatch, "code issued for a different course")
	case !code.CodeExpiresAt.After(now):
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCode, "code expired")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeWindowExpired, "access window closed")
	}
}

// resolveVideo checks the course/lesson/video chain and returns the lesson
// and video rows. Each missing level reports its own message.
func (s *service) resolveVideo(ctx context.Context, ref VideoRef) (*models.Lesson, *models.Video, error) {
	if err := ref.validate(); err != nil {
		return nil, nil, err
	}

	exists, err := s.content.Exists(ctx, ref.CourseID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup course")
	}
	if !exists {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}

	lesson, err := s.content.FindLesson(ctx, ref.CourseID, ref.LessonID, ref.UnitID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup lesson")
	}
	if lesson == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "lesson not found")
	}

	video, err := s.content.FindVideo(ctx, ref.LessonID, ref.VideoID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup video")
	}
	if video == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
	}
	return lesson, video, nil
}

func (s *service) grantAdminAccess(ctx context.Context, userID, courseID uuid.UUID, now time.Time) (*Decision, error) {
	grant, err := s.grants.ExtendOrCreate(ctx, &models.AccessGrant{
		UserID:        userID,
		CourseID:      courseID,
		AccessStartAt: now,
		AccessEndAt:   now.Add(s.adminHorizon),
		Source:        enums.AccessSourceAdmin,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend admin grant")
	}
	return decisionFromGrant(grant, enums.AccessSourceAdmin), nil
}

// recordRedemption stamps the first use and appends to the usage ledger.
func (s *service) recordRedemption(ctx context.Context, userID uuid.UUID, code *models.AccessCode, now time.Time, lessonID, videoID *uuid.UUID) error {
	if err := s.codes.MarkFirstUse(ctx, code.ID, userID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark code first use")
	}
	if err := s.codes.AppendUsage(ctx, &models.AccessCodeUsage{
		CodeID:   code.ID,
		UserID:   userID,
		UsedAt:   now,
		LessonID: lessonID,
		VideoID:  videoID,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append code usage")
	}
	return nil
}

// postWalletEntry is best effort. A wallet outage must not fail a
// redemption that already extended the grant.
func (s *service) postWalletEntry(ctx context.Context, userID uuid.UUID, code string, txnType enums.WalletTransactionType, description string) {
	err := s.wallet.RecordRedemption(ctx, wallet.RedemptionRecord{
		UserID:      userID,
		Type:        txnType,
		Code:        code,
		Description: description,
	})
	if err != nil {
		s.logg.Error(ctx, "wallet transaction failed after redemption", err)
	}
}

func decisionFromGrant(grant *models.AccessGrant, source enums.AccessSource) *Decision {
	end := grant.AccessEndAt
	return &Decision{
		Allowed:     true,
		Source:      source,
		AccessEndAt: &end,
		GrantID:     &grant.ID,
	}
}
