package access

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/api/middleware"
	"github.com/studyloop/studyloop-backend/api/responses"
	"github.com/studyloop/studyloop-backend/api/validators"
	"github.com/studyloop/studyloop-backend/internal/accesscodes"
	"github.com/studyloop/studyloop-backend/pkg/db/models"
	pkgerrors "github.com/studyloop/studyloop-backend/pkg/errors"
	"github.com/studyloop/studyloop-backend/pkg/logger"
	"github.com/studyloop/studyloop-backend/pkg/pagination"
)

type generateCodesRequest struct {
	CourseID      string     `json:"course_id" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	AccessStartAt time.Time  `json:"access_start_at" validate:"required"`
	AccessEndAt   time.Time  `json:"access_end_at" validate:"required"`
	CodeExpiresAt *time.Time `json:"code_expires_at"`
}

func (r generateCodesRequest) toInput() (accesscodes.GenerateInput, error) {
	courseID, err := uuid.Parse(strings.TrimSpace(r.CourseID))
	if err != nil {
		return accesscodes.GenerateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course_id")
	}
	return accesscodes.GenerateInput{
		CourseID:      courseID,
		Quantity:      r.Quantity,
		AccessStartAt: r.AccessStartAt,
		AccessEndAt:   r.AccessEndAt,
		CodeExpiresAt: r.CodeExpiresAt,
	}, nil
}

// CodesGenerate handles batch code creation for a course.
func CodesGenerate(svc accesscodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access code service unavailable"))
			return
		}

		issuerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload generateCodesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.GenerateCodes(r.Context(), issuerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]codeResponse, len(created))
		for i, row := range created {
			items[i] = codeResponseFromModel(row)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"codes": items,
			"count": len(items),
		})
	}
}

// CodesList handles the paged admin listing with optional filters.
func CodesList(svc accesscodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access code service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := accesscodes.ListParams{
			Search:        validators.SanitizeString(r.URL.Query().Get("search"), 120),
			RedeemerEmail: validators.SanitizeString(r.URL.Query().Get("redeemer"), 254),
			Page:          pagination.Params{Page: page, Limit: limit},
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("course_id")); raw != "" {
			courseID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course_id"))
				return
			}
			params.CourseID = &courseID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("used")); raw != "" {
			switch raw {
			case "true":
				used := true
				params.Used = &used
			case "false":
				used := false
				params.Used = &used
			default:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "used must be true or false"))
				return
			}
		}

		result, err := svc.ListCodes(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]codeResponse, len(result.Items))
		for i, row := range result.Items {
			items[i] = codeResponseFromModel(row)
		}
		responses.WriteSuccess(w, map[string]any{
			"codes":      items,
			"pagination": result.Meta,
		})
	}
}

// CodeDelete handles removing a single unused code.
func CodeDelete(svc accesscodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access code service unavailable"))
			return
		}

		codeID, err := uuid.Parse(chi.URLParam(r, "codeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid code id"))
			return
		}

		if err := svc.DeleteCode(r.Context(), codeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

type bulkDeleteRequest struct {
	CodeIDs    []string `json:"code_ids" validate:"required,min=1"`
	CourseID   *string  `json:"course_id"`
	OnlyUnused bool     `json:"only_unused"`
}

// CodesBulkDelete handles removing several codes in one request.
func CodesBulkDelete(svc accesscodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access code service unavailable"))
			return
		}

		var payload bulkDeleteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := accesscodes.BulkDeleteInput{OnlyUnused: payload.OnlyUnused}
		for _, raw := range payload.CodeIDs {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid code id"))
				return
			}
			input.CodeIDs = append(input.CodeIDs, id)
		}
		if payload.CourseID != nil {
			courseID, err := uuid.Parse(strings.TrimSpace(*payload.CourseID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course_id"))
				return
			}
			input.CourseID = &courseID
		}

		deleted, err := svc.BulkDeleteCodes(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": deleted})
	}
}

type codeResponse struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"`
	CourseID      uuid.UUID  `json:"course_id"`
	AccessStartAt time.Time  `json:"access_start_at"`
	AccessEndAt   time.Time  `json:"access_end_at"`
	CodeExpiresAt time.Time  `json:"code_expires_at"`
	Used          bool       `json:"used"`
	UsedBy        *uuid.UUID `json:"used_by,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func codeResponseFromModel(m models.AccessCode) codeResponse {
	return codeResponse{
		ID:            m.ID,
		Code:          m.Code,
		CourseID:      m.CourseID,
		AccessStartAt: m.AccessStartAt,
		AccessEndAt:   m.AccessEndAt,
		CodeExpiresAt: m.CodeExpiresAt,
		Used:          m.IsUsed(),
		UsedBy:        m.UsedBy,
		UsedAt:        m.UsedAt,
		CreatedAt:     m.CreatedAt,
	}
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}
