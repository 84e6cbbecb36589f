package access

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/api/middleware"
	"github.com/studyloop/studyloop-backend/internal/accesscodes"
	"github.com/studyloop/studyloop-backend/pkg/db/models"
	"github.com/studyloop/studyloop-backend/pkg/logger"
	"github.com/studyloop/studyloop-backend/pkg/pagination"
)

type stubCodesService struct {
	generate   func(ctx context.Context, issuerID uuid.UUID, input accesscodes.GenerateInput) ([]models.AccessCode, error)
	list       func(ctx context.Context, params accesscodes.ListParams) (*accesscodes.ListResult, error)
	deleteFn   func(ctx context.Context, codeID uuid.UUID) error
	bulkDelete func(ctx context.Context, input accesscodes.BulkDeleteInput) (int64, error)
}

func (s stubCodesService) GenerateCodes(ctx context.Context, issuerID uuid.UUID, input accesscodes.GenerateInput) ([]models.AccessCode, error) {
	if s.generate != nil {
		return s.generate(ctx, issuerID, input)
	}
	return nil, nil
}

func (s stubCodesService) ListCodes(ctx context.Context, params accesscodes.ListParams) (*accesscodes.ListResult, error) {
	if s.list != nil {
		return s.list(ctx, params)
	}
	return &accesscodes.ListResult{}, nil
}

func (s stubCodesService) DeleteCode(ctx context.Context, codeID uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, codeID)
	}
	return nil
}

func (s stubCodesService) BulkDeleteCodes(ctx context.Context, input accesscodes.BulkDeleteInput) (int64, error) {
	if s.bulkDelete != nil {
		return s.bulkDelete(ctx, input)
	}
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-access", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func authedRequest(method, target string, body io.Reader, userID uuid.UUID, role string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestCodesGenerateReturnsCreatedBatch(t *testing.T) {
	issuerID := uuid.New()
	courseID := uuid.New()
	var gotIssuer uuid.UUID
	var gotInput accesscodes.GenerateInput
	svc := stubCodesService{
		generate: func(ctx context.Context, issuer uuid.UUID, input accesscodes.GenerateInput) ([]models.AccessCode, error) {
			gotIssuer = issuer
			gotInput = input
			return []models.AccessCode{
				{ID: uuid.New(), Code: "ALGCODE222", CourseID: input.CourseID},
				{ID: uuid.New(), Code: "ALGCODE333", CourseID: input.CourseID},
			}, nil
		},
	}

	body := `{"course_id":"` + courseID.String() + `","quantity":2,` +
		`"access_start_at":"2026-01-01T00:00:00Z","access_end_at":"2026-03-01T00:00:00Z"}`
	req := authedRequest(http.MethodPost, "/api/v1/admin/access/codes", strings.NewReader(body), issuerID, "admin")
	resp := httptest.NewRecorder()
	CodesGenerate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotIssuer != issuerID {
		t.Fatalf("expected issuer %s got %s", issuerID, gotIssuer)
	}
	if gotInput.CourseID != courseID || gotInput.Quantity != 2 {
		t.Fatalf("unexpected input forwarded: %+v", gotInput)
	}

	var envelope struct {
		Data struct {
			Count int            `json:"count"`
			Codes []codeResponse `json:"codes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Count != 2 || len(envelope.Data.Codes) != 2 {
		t.Fatalf("expected 2 codes in response got %+v", envelope.Data)
	}
}

func TestCodesGenerateRequiresUserContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/access/codes", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	CodesGenerate(stubCodesService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context got %d", resp.Code)
	}
}

func TestCodesGenerateRejectsBadCourseID(t *testing.T) {
	body := `{"course_id":"not-a-uuid","quantity":1,` +
		`"access_start_at":"2026-01-01T00:00:00Z","access_end_at":"2026-03-01T00:00:00Z"}`
	req := authedRequest(http.MethodPost, "/api/v1/admin/access/codes", strings.NewReader(body), uuid.New(), "admin")
	resp := httptest.NewRecorder()
	CodesGenerate(stubCodesService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad course id got %d", resp.Code)
	}
}

func TestCodesListParsesFilters(t *testing.T) {
	courseID := uuid.New()
	var gotParams accesscodes.ListParams
	svc := stubCodesService{
		list: func(ctx context.Context, params accesscodes.ListParams) (*accesscodes.ListResult, error) {
			gotParams = params
			return &accesscodes.ListResult{
				Items: []models.AccessCode{{ID: uuid.New(), Code: "ALGCODE222", CourseID: courseID}},
				Meta:  pagination.NewMeta(params.Page, 1),
			}, nil
		},
	}

	target := "/api/v1/admin/access/codes?course_id=" + courseID.String() + "&used=false&search=alg&redeemer=dana%40example.com&page=2&limit=5"
	req := authedRequest(http.MethodGet, target, nil, uuid.New(), "admin")
	resp := httptest.NewRecorder()
	CodesList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotParams.CourseID == nil || *gotParams.CourseID != courseID {
		t.Fatalf("expected course filter %s got %+v", courseID, gotParams.CourseID)
	}
	if gotParams.Used == nil || *gotParams.Used {
		t.Fatalf("expected used=false filter got %+v", gotParams.Used)
	}
	if gotParams.Search != "alg" {
		t.Fatalf("expected search alg got %q", gotParams.Search)
	}
	if gotParams.RedeemerEmail != "dana@example.com" {
		t.Fatalf("expected redeemer filter got %q", gotParams.RedeemerEmail)
	}
	if gotParams.Page.Page != 2 || gotParams.Page.Limit != 5 {
		t.Fatalf("unexpected paging %+v", gotParams.Page)
	}
}

func TestCodesListRejectsBadUsedFilter(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/admin/access/codes?used=maybe", nil, uuid.New(), "admin")
	resp := httptest.NewRecorder()
	CodesList(stubCodesService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad used filter got %d", resp.Code)
	}
}

func TestCodeDeleteParsesPathParam(t *testing.T) {
	codeID := uuid.New()
	var gotID uuid.UUID
	svc := stubCodesService{
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			gotID = id
			return nil
		},
	}

	router := chi.NewRouter()
	router.Delete("/codes/{codeId}", CodeDelete(svc, testLogger()))

	req := authedRequest(http.MethodDelete, "/codes/"+codeID.String(), nil, uuid.New(), "admin")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotID != codeID {
		t.Fatalf("expected code id %s got %s", codeID, gotID)
	}
}

func TestCodeDeleteRejectsBadID(t *testing.T) {
	router := chi.NewRouter()
	router.Delete("/codes/{codeId}", CodeDelete(stubCodesService{}, testLogger()))

	req := authedRequest(http.MethodDelete, "/codes/nope", nil, uuid.New(), "admin")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad code id got %d", resp.Code)
	}
}

func TestCodesBulkDeleteForwardsScope(t *testing.T) {
	courseID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	var gotInput accesscodes.BulkDeleteInput
	svc := stubCodesService{
		bulkDelete: func(ctx context.Context, input accesscodes.BulkDeleteInput) (int64, error) {
			gotInput = input
			return int64(len(input.CodeIDs)), nil
		},
	}

	body := `{"code_ids":["` + ids[0].String() + `","` + ids[1].String() + `"],` +
		`"course_id":"` + courseID.String() + `","only_unused":true}`
	req := authedRequest(http.MethodPost, "/api/v1/admin/access/codes/bulk-delete", strings.NewReader(body), uuid.New(), "admin")
	resp := httptest.NewRecorder()
	CodesBulkDelete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(gotInput.CodeIDs) != 2 || !gotInput.OnlyUnused {
		t.Fatalf("unexpected bulk input %+v", gotInput)
	}
	if gotInput.CourseID == nil || *gotInput.CourseID != courseID {
		t.Fatalf("expected course scope %s got %+v", courseID, gotInput.CourseID)
	}

	var envelope struct {
		Data struct {
			Deleted int64 `json:"deleted"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Deleted != 2 {
		t.Fatalf("expected 2 deleted got %d", envelope.Data.Deleted)
	}
}

func TestCodesBulkDeleteRejectsEmptyBatch(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/admin/access/codes/bulk-delete", strings.NewReader(`{"code_ids":[]}`), uuid.New(), "admin")
	resp := httptest.NewRecorder()
	CodesBulkDelete(stubCodesService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch got %d", resp.Code)
	}
}
