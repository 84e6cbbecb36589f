package access

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/api/middleware"
	"github.com/studyloop/studyloop-backend/api/responses"
	"github.com/studyloop/studyloop-backend/api/validators"
	"github.com/studyloop/studyloop-backend/internal/entitlements"
	"github.com/studyloop/studyloop-backend/pkg/enums"
	pkgerrors "github.com/studyloop/studyloop-backend/pkg/errors"
	"github.com/studyloop/studyloop-backend/pkg/logger"
)

type redeemRequest struct {
	Code     string `json:"code"`
	CourseID string `json:"course_id" validate:"required"`
}

// Redeem handles redeeming a code for course-wide access.
func Redeem(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlement service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload redeemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		courseID, err := uuid.Parse(strings.TrimSpace(payload.CourseID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course_id"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCourseID(ctx, courseID.String())
		}
		decision, err := svc.RedeemCourseCode(ctx, actor, entitlements.RedeemCourseInput{
			Code:     payload.Code,
			CourseID: courseID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decisionResponseFrom(decision))
	}
}

type redeemVideoRequest struct {
	Code     string  `json:"code"`
	CourseID string  `json:"course_id" validate:"required"`
	LessonID string  `json:"lesson_id" validate:"required"`
	VideoID  string  `json:"video_id" validate:"required"`
	UnitID   *string `json:"unit_id"`
}

func (r redeemVideoRequest) toInput() (entitlements.RedeemVideoInput, error) {
	ref, err := parseVideoRef(r.CourseID, r.LessonID, r.VideoID, r.UnitID)
	if err != nil {
		return entitlements.RedeemVideoInput{}, err
	}
	return entitlements.RedeemVideoInput{Code: r.Code, VideoRef: ref}, nil
}

// RedeemVideo handles redeeming a code for a single video. Free lessons
// resolve without a code.
func RedeemVideo(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlement service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload redeemVideoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCourseID(ctx, input.CourseID.String())
		}
		decision, err := svc.RedeemVideoCode(ctx, actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decisionResponseFrom(decision))
	}
}

type decisionResponse struct {
	Allowed      bool               `json:"allowed"`
	Source       enums.AccessSource `json:"source,omitempty"`
	AccessEndAt  *time.Time         `json:"access_end_at,omitempty"`
	GrantID      *uuid.UUID         `json:"grant_id,omitempty"`
	RequiresCode bool               `json:"requires_code,omitempty"`
}

func decisionResponseFrom(d *entitlements.Decision) decisionResponse {
	return decisionResponse{
		Allowed:      d.Allowed,
		Source:       d.Source,
		AccessEndAt:  d.AccessEndAt,
		GrantID:      d.GrantID,
		RequiresCode: d.RequiresCode,
	}
}

func actorFromRequest(r *http.Request) (entitlements.Actor, error) {
	userID, err := requireUserID(r)
	if err != nil {
		return entitlements.Actor{}, err
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return entitlements.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return entitlements.Actor{ID: userID, Role: role}, nil
}

func parseVideoRef(courseID, lessonID, videoID string, unitID *string) (entitlements.VideoRef, error) {
	course, err := uuid.Parse(strings.TrimSpace(courseID))
	if err != nil {
		return entitlements.VideoRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course_id")
	}
	lesson, err := uuid.Parse(strings.TrimSpace(lessonID))
	if err != nil {
		return entitlements.VideoRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lesson_id")
	}
	video, err := uuid.Parse(strings.TrimSpace(videoID))
	if err != nil {
		return entitlements.VideoRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid video_id")
	}

	ref := entitlements.VideoRef{CourseID: course, LessonID: lesson, VideoID: video}
	if unitID != nil && strings.TrimSpace(*unitID) != "" {
		unit, err := uuid.Parse(strings.TrimSpace(*unitID))
		if err != nil {
			return entitlements.VideoRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit_id")
		}
		ref.UnitID = &unit
	}
	return ref, nil
}
