package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/internal/ats"
	"github.com/applypilot/applypilot/internal/models"
)

type mockScanService struct {
	startErr   error
	analysisID uuid.UUID
	record     *models.AtsAnalysisRecord
	history    []models.AtsAnalysisRecord
	getErr     error
	listErr    error

	gotJobID    uuid.UUID
	gotExisting uuid.UUID
}

func (m *mockScanService) StartScan(_ context.Context, jobID, existing uuid.UUID) (uuid.UUID, error) {
	m.gotJobID = jobID
	m.gotExisting = existing
	if m.startErr != nil {
		return uuid.Nil, m.startErr
	}
	return m.analysisID, nil
}

func (m *mockScanService) GetScore(_ context.Context, _ uuid.UUID) (*models.AtsAnalysisRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.record, nil
}

func (m *mockScanService) ListScans(_ context.Context, jobID uuid.UUID) ([]models.AtsAnalysisRecord, error) {
	m.gotJobID = jobID
	return m.history, m.listErr
}

func atsRouter(mock *mockScanService) http.Handler {
	r := chi.NewRouter()
	NewAtsHandler(mock).Routes(r)
	return r
}

func TestStartScanEndpoint(t *testing.T) {
	mock := &mockScanService{analysisID: uuid.New()}
	router := atsRouter(mock)

	jobID := uuid.New()
	body, _ := json.Marshal(map[string]any{"jobApplicationId": jobID})
	req := httptest.NewRequest(http.MethodPost, "/ats/scan", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, jobID, mock.gotJobID)
	assert.Equal(t, uuid.Nil, mock.gotExisting)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, mock.analysisID.String(), resp["analysisId"])
}

func TestStartScanEndpointRescan(t *testing.T) {
	existing := uuid.New()
	mock := &mockScanService{analysisID: existing}
	router := atsRouter(mock)

	body, _ := json.Marshal(map[string]any{
		"jobApplicationId": uuid.New(),
		"analysisId":       existing,
	})
	req := httptest.NewRequest(http.MethodPost, "/ats/scan", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, existing, mock.gotExisting)
}

func TestStartScanEndpointErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown application", ats.ErrApplicationNotFound, http.StatusNotFound},
		{"no description", ats.ErrNoDescription, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := atsRouter(&mockScanService{startErr: tc.err})

			body, _ := json.Marshal(map[string]any{"jobApplicationId": uuid.New()})
			req := httptest.NewRequest(http.MethodPost, "/ats/scan", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestStartScanEndpointMissingJobID(t *testing.T) {
	router := atsRouter(&mockScanService{})

	req := httptest.NewRequest(http.MethodPost, "/ats/scan", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetScoreEndpoint(t *testing.T) {
	score := 72.0
	analysisID := uuid.New()
	mock := &mockScanService{record: &models.AtsAnalysisRecord{ID: analysisID, Score: &score}}
	router := atsRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/ats/scores/"+analysisID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.AtsAnalysisRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Score)
	assert.Equal(t, 72.0, *resp.Score)
}

func TestGetScoreEndpointNotFound(t *testing.T) {
	router := atsRouter(&mockScanService{getErr: ats.ErrAnalysisNotFound})

	req := httptest.NewRequest(http.MethodGet, "/ats/scores/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListScansEndpoint(t *testing.T) {
	jobID := uuid.New()
	score := 55.0
	mock := &mockScanService{history: []models.AtsAnalysisRecord{
		{ID: uuid.New(), JobApplicationID: jobID, Score: &score},
		{ID: uuid.New(), JobApplicationID: jobID},
	}}
	router := atsRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/ats/scans/"+jobID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jobID, mock.gotJobID)

	var resp struct {
		Analyses []models.AtsAnalysisRecord `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Analyses, 2)
}

func TestListScansEndpointUnknownApplication(t *testing.T) {
	router := atsRouter(&mockScanService{listErr: ats.ErrApplicationNotFound})

	req := httptest.NewRequest(http.MethodGet, "/ats/scans/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListScansEndpointEmpty(t *testing.T) {
	router := atsRouter(&mockScanService{})

	req := httptest.NewRequest(http.MethodGet, "/ats/scans/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"analyses":[]`)
}

func TestGetScoreEndpointBadID(t *testing.T) {
	router := atsRouter(&mockScanService{})

	req := httptest.NewRequest(http.MethodGet, "/ats/scores/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
