package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/api/responses"
	"github.com/studyloop/studyloop-backend/internal/entitlements"
	pkgerrors "github.com/studyloop/studyloop-backend/pkg/errors"
	"github.com/studyloop/studyloop-backend/pkg/logger"
)

// CourseAccess handles the read-only course entitlement check.
func CourseAccess(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
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

		courseID, err := uuid.Parse(chi.URLParam(r, "courseId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course id"))
			return
		}

		decision, err := svc.CheckCourseAccess(r.Context(), actor, courseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decisionResponseFrom(decision))
	}
}

// VideoAccess handles the read-only video entitlement check. The optional
// unitId query parameter pins the lesson to one unit.
func VideoAccess(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
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

		var unitID *string
		if raw := r.URL.Query().Get("unitId"); raw != "" {
			unitID = &raw
		}
		ref, err := parseVideoRef(
			chi.URLParam(r, "courseId"),
			chi.URLParam(r, "lessonId"),
			chi.URLParam(r, "videoId"),
			unitID,
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := svc.CheckVideoAccess(r.Context(), actor, ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decisionResponseFrom(decision))
	}
}
