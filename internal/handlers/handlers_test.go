package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agrineural/agrineural/internal/classifier"
	"github.com/agrineural/agrineural/internal/database"
	"github.com/agrineural/agrineural/internal/middleware"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/agrineural/agrineural/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-32-characters!!"

type testServer struct {
	engine *gin.Engine
	tokens *services.TokenService
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cls classifier.Classifier, testMode bool) *testServer {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	farmRepo := repository.NewFarmRepository(db)
	associationRepo := repository.NewAssociationRepository(db)
	imageRepo := repository.NewImageRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	guard := services.NewAccessGuard(farmRepo, associationRepo)
	farmService := services.NewFarmService(farmRepo)
	associationService := services.NewAssociationService(farmRepo, associationRepo)
	reportService := services.NewReportService(guard, farmRepo, imageRepo, userRepo, store)
	ingestService := services.NewIngestService(guard, imageRepo, store, cls, db, logger, services.IngestOptions{MaxUploadBytes: 1024})
	tokenService := services.NewTokenService(tokenRepo, "jwt-test-secret")

	router := &Router{
		Logger:   logger,
		Auth:     middleware.NewAuthMiddleware(tokenService, nil, testMode),
		Admin:    middleware.NewAdminMiddleware([]string{"admin"}),
		Farms:    NewFarmHandler(farmService, associationService),
		Images:   NewImageHandler(ingestService, reportService, 1024),
		Reports:  NewReportHandler(reportService),
		Exports:  NewExportHandler(services.NewExportService(reportService, testSigningKey)),
		Tokens:   NewTokenHandler(tokenService),
		Profiles: NewProfileHandler(services.NewUserService(userRepo)),
		AdminAPI: NewAdminHandler(farmService, associationService),
		Public:   NewPublicHandler(reportService, db),
	}
	return &testServer{engine: router.Engine(), tokens: tokenService}
}

func (s *testServer) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set("X-Test-Caller", caller)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, caller string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if caller != "" {
		req.Header.Set("X-Test-Caller", caller)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createFarm(t *testing.T, owner, code string) uint {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/producer/farms", owner, map[string]any{
		"registry_code": code,
		"name":          "Farm " + code,
		"latitude":      -10.0,
		"longitude":     -50.0,
		"area_hectares": 12.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var farm struct {
		ID uint `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &farm))
	return farm.ID
}

func imageFields(farmID uint) map[string]string {
	return map[string]string{"farm_id": fmt.Sprint(farmID), "lat": "-10.0", "lon": "-50.0"}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEndToEnd_UploadAndReport(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(true), true)
	farmID := srv.createFarm(t, "12345678900", "CCIR-1")
	assert.Equal(t, uint(1), farmID)

	rec := srv.upload(t, "/api/v1/images", "12345678900", imageFields(farmID), "plot.jpg", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploaded := decode[UploadImageResponse](t, rec)
	assert.Equal(t, uint(1), uploaded.ImageID)
	assert.True(t, uploaded.Anomalous)

	rec = srv.do(t, http.MethodGet, "/api/v1/farms/1/report", "12345678900", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[services.FarmReportView](t, rec)
	assert.Equal(t, int64(1), view.Report.Total)
	assert.Equal(t, int64(1), view.Report.Anomalous)
	assert.Equal(t, int64(0), view.Report.Normal)
	assert.Equal(t, services.StatusCritical, view.Report.Status)
	assert.Equal(t, "12345678900", view.Farm.OwnerID)

	rec = srv.do(t, http.MethodGet, "/api/v1/farms/1/detail", "12345678900", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[services.FarmDetail](t, rec)
	require.Len(t, detail.Images, 1)
	require.NotNil(t, detail.Images[0].Verdict)
	assert.True(t, detail.Images[0].Verdict.Anomalous)

	rec = srv.do(t, http.MethodGet, "/api/v1/farms/1/images/1/file", "12345678900", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
}

func TestUpload_ErrorStatuses(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(false), true)
	farmID := srv.createFarm(t, "owner", "CCIR-1")

	tests := []struct {
		name     string
		caller   string
		fields   map[string]string
		filename string
		content  []byte
		status   int
		kind     string
	}{
		{"unauthenticated", "", imageFields(farmID), "a.jpg", []byte("x"), http.StatusUnauthorized, services.KindUnauthenticated},
		{"stranger", "stranger", imageFields(farmID), "a.jpg", []byte("x"), http.StatusForbidden, services.KindAccessDenied},
		{"unknown farm", "owner", imageFields(404), "a.jpg", []byte("x"), http.StatusNotFound, services.KindNotFound},
		{"missing file", "owner", imageFields(farmID), "", nil, http.StatusBadRequest, services.KindInvalidInput},
		{"empty file", "owner", imageFields(farmID), "a.jpg", []byte{}, http.StatusBadRequest, services.KindInvalidInput},
		{"missing farm", "owner", map[string]string{"lat": "1", "lon": "1"}, "a.jpg", []byte("x"), http.StatusBadRequest, services.KindInvalidInput},
		{"missing lat", "owner", map[string]string{"farm_id": fmt.Sprint(farmID), "lon": "1"}, "a.jpg", []byte("x"), http.StatusBadRequest, services.KindInvalidInput},
		{"too large", "owner", imageFields(farmID), "a.jpg", bytes.Repeat([]byte("x"), 2048), http.StatusBadRequest, services.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.upload(t, "/api/v1/images", tt.caller, tt.fields, tt.filename, tt.content)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.kind, decode[ErrorResponse](t, rec).Kind)
		})
	}
}

func TestUpload_ClassificationFailureIsGeneric(t *testing.T) {
	cls := classifier.Func(func(ctx context.Context, ref string) (bool, error) {
		return false, errors.New("model server at 10.0.0.3 refused")
	})
	srv := newTestServer(t, cls, true)
	farmID := srv.createFarm(t, "owner", "CCIR-1")

	rec := srv.upload(t, "/api/v1/images", "owner", imageFields(farmID), "a.jpg", []byte("x"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, services.KindClassificationFailed, resp.Kind)
	assert.NotContains(t, resp.Error, "10.0.0.3")

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/farms/%d/report", farmID), "owner", nil)
	assert.Equal(t, int64(0), decode[services.FarmReportView](t, rec).Report.Total)
}

func TestAccessControl_Routes(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(false), true)
	farmID := srv.createFarm(t, "owner", "CCIR-1")

	rec := srv.do(t, http.MethodPost, "/api/v1/operator/farms", "operator", AssociateRequest{FarmID: farmID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.upload(t, "/api/v1/operator/images", "operator", imageFields(farmID), "a.jpg", []byte("x"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.upload(t, "/api/v1/surveyor/images", "surveyor", imageFields(farmID), "a.jpg", []byte("x"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	paths := []string{"detail", "report", "report/export", "report.xlsx"}
	for _, p := range paths {
		url := fmt.Sprintf("/api/v1/farms/%d/%s", farmID, p)
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, url, "owner", nil).Code, url)
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, url, "operator", nil).Code, url)
		assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, url, "stranger", nil).Code, url)
	}

	for _, p := range []string{"detail", "report"} {
		url := fmt.Sprintf("/api/v1/producer/farms/%d/%s", farmID, p)
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, url, "owner", nil).Code, url)
		assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, url, "operator", nil).Code, url)
	}

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/v1/farms/99/report", "owner", nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/v1/farms/abc/report", "owner", nil).Code)
}

func TestFarms_ConflictsAndLookup(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(false), true)
	farmID := srv.createFarm(t, "owner", "CCIR-1")

	rec := srv.do(t, http.MethodPost, "/api/v1/producer/farms", "other", map[string]any{
		"registry_code": "CCIR-1", "name": "Dup", "area_hectares": 3,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, services.KindConflict, decode[ErrorResponse](t, rec).Kind)

	rec = srv.do(t, http.MethodPost, "/api/v1/producer/farms", "owner", map[string]any{
		"registry_code": "CCIR-2", "name": "Bad", "area_hectares": 3, "latitude": 120,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/operator/farms?registry_code=CCIR-1", "operator", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = srv.do(t, http.MethodGet, "/api/v1/operator/farms?registry_code=NOPE", "operator", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/v1/surveyor/farms", "surveyor", AssociateRequest{FarmID: farmID}).Code)
	rec = srv.do(t, http.MethodPost, "/api/v1/surveyor/farms", "surveyor", AssociateRequest{FarmID: farmID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/surveyor/farms/associated", "surveyor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = srv.do(t, http.MethodGet, "/api/v1/producer/farms", "owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
}

func TestExport_VerifyEndpoint(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(true), true)
	farmID := srv.createFarm(t, "owner", "CCIR-1")
	srv.upload(t, "/api/v1/images", "owner", imageFields(farmID), "a.jpg", []byte("x"))

	rec := srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/farms/%d/report/export", farmID), "owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	export := decode[services.ReportExport](t, rec)

	rec = srv.do(t, http.MethodPost, "/api/v1/reports/verify", "", export)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[VerifyExportResponse](t, rec).Valid)

	export.Report.Anomalous = 0
	rec = srv.do(t, http.MethodPost, "/api/v1/reports/verify", "", export)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[VerifyExportResponse](t, rec).Valid)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/farms/%d/report.xlsx", farmID), "owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "farm-1-report.xlsx")
}

func TestProfile(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(false), true)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/v1/profile", "owner", nil).Code)

	rec := srv.do(t, http.MethodPut, "/api/v1/profile", "owner", map[string]string{"name": "Maria", "role": "producer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	farmID := srv.createFarm(t, "owner", "CCIR-1")
	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/farms/%d/detail", farmID), "owner", nil)
	assert.Equal(t, "Maria", decode[services.FarmDetail](t, rec).ProducerName)

	rec = srv.do(t, http.MethodPut, "/api/v1/profile", "owner", map[string]string{"name": "Maria", "role": "king"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAndPublic(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(true), true)
	farmID := srv.createFarm(t, "owner", "CCIR-1")
	srv.upload(t, "/api/v1/images", "owner", imageFields(farmID), "a.jpg", []byte("x"))
	srv.do(t, http.MethodPost, "/api/v1/operator/farms", "operator", AssociateRequest{FarmID: farmID})

	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/v1/admin/farms", "owner", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/admin/farms", "", nil).Code)

	rec := srv.do(t, http.MethodGet, "/api/v1/admin/associations", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	associations := decode[[]AssociationListResponse](t, rec)
	require.Len(t, associations, 1)
	assert.Equal(t, "CCIR-1", associations[0].RegistryCode)

	rec = srv.do(t, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[services.PlatformStats](t, rec)
	assert.Equal(t, int64(1), stats.Farms)
	assert.Equal(t, int64(1), stats.AnomalousImages)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/healthz", "", nil).Code)

	rec = srv.do(t, http.MethodGet, "/docs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "doc.json")
	assert.Equal(t, http.StatusFound, srv.do(t, http.MethodGet, "/", "", nil).Code)
}

func TestTokens_BearerAuth(t *testing.T) {
	srv := newTestServer(t, classifier.NewStatic(false), false)
	token, err := srv.tokens.GenerateToken("owner", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	tokens := decode[[]TokenListResponse](t, rec)
	require.Len(t, tokens, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil)
	req.Header.Set("Authorization", "Token "+token)
	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/tokens/%d", tokens[0].ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the test header is ignored outside test mode
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/tokens", "owner", nil).Code)
}
