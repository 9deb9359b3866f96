package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/motocare/internal/observability"
	"github.com/MarkoPoloResearchLab/motocare/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSigningKey = "test-signing-key"
	testCustomer   = "customer-1"
	testAdmin      = "admin-1"
	testGarage     = "garage-1"
)

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type apiFixture struct {
	engine http.Handler
	bikeID string
}

func newAPIFixture(test *testing.T) apiFixture {
	test.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(test, err)
	sqlDB, err := db.DB()
	require.NoError(test, err)
	sqlDB.SetMaxOpenConns(1)
	test.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(test, gormstore.AutoMigrate(db))

	bike := gormstore.Bike{UserID: testCustomer, Company: "Bajaj", Model: "Pulsar 150", RegistrationNo: "MH12XY9876", CreatedAt: testNow}
	require.NoError(test, db.Create(&bike).Error)
	require.NoError(test, db.Create(&gormstore.Garage{ID: testGarage, Name: "Main Street", Status: "APPROVED", CreatedAt: testNow}).Error)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	service, err := booking.NewService(
		gormstore.New(db),
		func() time.Time { return testNow },
		booking.WithConfig(booking.Config{Location: time.UTC}),
		booking.WithOperationLogger(observability.NewOperationLogger(zap.NewNop(), metrics)),
	)
	require.NoError(test, err)

	cfg := Config{JWTSigningKey: testSigningKey}
	require.NoError(test, cfg.Validate())
	return apiFixture{
		engine: NewRouter(cfg, service, zap.NewNop(), registry),
		bikeID: bike.ID,
	}
}

func signToken(test *testing.T, subject string, role string) string {
	test.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	require.NoError(test, err)
	return signed
}

func (fixture apiFixture) do(test *testing.T, method string, path string, token string, body any) *httptest.ResponseRecorder {
	test.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(test, err)
		reader = bytes.NewReader(raw)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	fixture.engine.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(test *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	test.Helper()
	var payload map[string]any
	require.NoError(test, json.Unmarshal(recorder.Body.Bytes(), &payload), recorder.Body.String())
	return payload
}

func errorCode(test *testing.T, recorder *httptest.ResponseRecorder) string {
	test.Helper()
	payload := decodeBody(test, recorder)
	errorBody, ok := payload["error"].(map[string]any)
	require.True(test, ok, recorder.Body.String())
	code, _ := errorBody["code"].(string)
	return code
}

func (fixture apiFixture) createAppointment(test *testing.T, token string, date string, slot string) (string, *httptest.ResponseRecorder) {
	test.Helper()
	recorder := fixture.do(test, http.MethodPost, "/api/appointments", token, map[string]any{
		"bike_id":        fixture.bikeID,
		"garage_id":      testGarage,
		"km_running":     12000,
		"preferred_date": date,
		"time_slot":      slot,
	})
	if recorder.Code != http.StatusCreated {
		return "", recorder
	}
	appointment := decodeBody(test, recorder)["appointment"].(map[string]any)
	return appointment["id"].(string), recorder
}

func TestHealthAndMetricsArePublic(test *testing.T) {
	test.Parallel()
	fixture := newAPIFixture(test)

	recorder := fixture.do(test, http.MethodGet, "/healthz", "", nil)
	require.Equal(test, http.StatusOK, recorder.Code)

	_, recorder = fixture.createAppointment(test, signToken(test, testCustomer, ""), "2026-03-11", "10:00")
	require.Equal(test, http.StatusCreated, recorder.Code, recorder.Body.String())
	recorder = fixture.do(test, http.MethodGet, "/metrics", "", nil)
	require.Equal(test, http.StatusOK, recorder.Code)
	require.Contains(test, recorder.Body.String(), `motocare_operations_total{operation="create_appointment",status="ok"} 1`)
}

func TestAuthRejectsMissingAndInvalidTokens(test *testing.T) {
	test.Parallel()
	fixture := newAPIFixture(test)

	recorder := fixture.do(test, http.MethodGet, "/api/rewards", "", nil)
	require.Equal(test, http.StatusUnauthorized, recorder.Code)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: testCustomer}})
	signed, err := forged.SignedString([]byte("other-key"))
	require.NoError(test, err)
	recorder = fixture.do(test, http.MethodGet, "/api/rewards", signed, nil)
	require.Equal(test, http.StatusUnauthorized, recorder.Code)

	recorder = fixture.do(test, http.MethodGet, "/api/rewards", signToken(test, "", ""), nil)
	require.Equal(test, http.StatusUnauthorized, recorder.Code)

	recorder = fixture.do(test, http.MethodGet, "/api/admin/invoices/pending", signToken(test, testCustomer, "customer"), nil)
	require.Equal(test, http.StatusForbidden, recorder.Code)
}

func TestBookingToPaymentFlow(test *testing.T) {
	test.Parallel()
	fixture := newAPIFixture(test)
	customerToken := signToken(test, testCustomer, "customer")
	adminToken := signToken(test, testAdmin, "admin")

	appointmentID, recorder := fixture.createAppointment(test, customerToken, "2026-03-11", "10:00")
	require.Equal(test, http.StatusCreated, recorder.Code, recorder.Body.String())

	recorder = fixture.do(test, http.MethodGet, "/api/admin/slots/occupancy?date=2026-03-11&garage_id="+testGarage, adminToken, nil)
	require.Equal(test, http.StatusOK, recorder.Code)
	occupancy := decodeBody(test, recorder)
	assert.Equal(test, float64(4), occupancy["max_per_slot"])
	assert.Equal(test, map[string]any{"10:00": float64(1)}, occupancy["counts"])

	recorder = fixture.do(test, http.MethodPatch, "/api/appointments/"+appointmentID+"/status", adminToken, map[string]any{"status": "CONFIRMED", "note": "bring service book"})
	require.Equal(test, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = fixture.do(test, http.MethodGet, "/api/appointments/"+appointmentID, customerToken, nil)
	require.Equal(test, http.StatusOK, recorder.Code)
	customerView := decodeBody(test, recorder)["appointment"].(map[string]any)
	assert.Equal(test, "CONFIRMED", customerView["status"])
	assert.NotContains(test, customerView, "internal_notes")

	recorder = fixture.do(test, http.MethodPatch, "/api/admin/appointments/"+appointmentID+"/price", adminToken, map[string]any{"price": 800})
	require.Equal(test, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = fixture.do(test, http.MethodPost, "/api/admin/appointments/"+appointmentID+"/invoice", adminToken, map[string]any{"status": "ISSUED"})
	require.Equal(test, http.StatusCreated, recorder.Code, recorder.Body.String())
	invoice := decodeBody(test, recorder)["invoice"].(map[string]any)
	invoiceID := invoice["id"].(string)
	assert.Equal(test, "800", invoice["total_amount"])

	recorder = fixture.do(test, http.MethodPatch, "/api/admin/appointments/"+appointmentID+"/price", adminToken, map[string]any{"price": 900})
	require.Equal(test, http.StatusConflict, recorder.Code)
	assert.Equal(test, "locked", errorCode(test, recorder))

	recorder = fixture.do(test, http.MethodPost, "/api/invoices/"+invoiceID+"/pay", customerToken, map[string]any{"redeem_points": 50})
	require.Equal(test, http.StatusBadRequest, recorder.Code)
	assert.Equal(test, "redemption_limit", errorCode(test, recorder))

	recorder = fixture.do(test, http.MethodPost, "/api/invoices/"+invoiceID+"/pay", customerToken, nil)
	require.Equal(test, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(test, "PAYMENT_PENDING", decodeBody(test, recorder)["invoice"].(map[string]any)["status"])

	recorder = fixture.do(test, http.MethodGet, "/api/admin/invoices/pending", adminToken, nil)
	require.Equal(test, http.StatusOK, recorder.Code)
	require.Len(test, decodeBody(test, recorder)["invoices"], 1)

	recorder = fixture.do(test, http.MethodPatch, "/api/admin/invoices/"+invoiceID+"/status", adminToken, map[string]any{"status": "PAID"})
	require.Equal(test, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(test, "800", decodeBody(test, recorder)["invoice"].(map[string]any)["paid_amount"])

	recorder = fixture.do(test, http.MethodPatch, "/api/appointments/"+appointmentID+"/status", adminToken, map[string]any{"status": "COMPLETED"})
	require.Equal(test, http.StatusOK, recorder.Code, recorder.Body.String())

	recorder = fixture.do(test, http.MethodGet, "/api/rewards", customerToken, nil)
	require.Equal(test, http.StatusOK, recorder.Code)
	rewards := decodeBody(test, recorder)["rewards"].(map[string]any)
	assert.Equal(test, float64(400), rewards["balance"])
	assert.Equal(test, float64(400), rewards["earned"])
	assert.Len(test, rewards["transactions"], 1)
}

func TestErrorKindsMapToStatuses(test *testing.T) {
	test.Parallel()
	fixture := newAPIFixture(test)
	customerToken := signToken(test, testCustomer, "")
	strangerToken := signToken(test, "customer-9", "")

	_, recorder := fixture.createAppointment(test, customerToken, "2026-03-09", "10:00")
	require.Equal(test, http.StatusConflict, recorder.Code)
	assert.Equal(test, "admission_rejected", errorCode(test, recorder))

	_, recorder = fixture.createAppointment(test, customerToken, "not-a-date", "10:00")
	require.Equal(test, http.StatusBadRequest, recorder.Code)
	assert.Equal(test, "validation_error", errorCode(test, recorder))

	appointmentID, recorder := fixture.createAppointment(test, customerToken, "2026-03-11", "11:00")
	require.Equal(test, http.StatusCreated, recorder.Code, recorder.Body.String())

	recorder = fixture.do(test, http.MethodPatch, "/api/appointments/"+appointmentID+"/status", customerToken, map[string]any{"status": "CONFIRMED"})
	require.Equal(test, http.StatusForbidden, recorder.Code)
	assert.Equal(test, "forbidden_transition", errorCode(test, recorder))

	recorder = fixture.do(test, http.MethodPatch, "/api/appointments/"+appointmentID+"/status", customerToken, map[string]any{"status": "COMPLETED"})
	require.Equal(test, http.StatusBadRequest, recorder.Code)
	assert.Equal(test, "invalid_transition", errorCode(test, recorder))

	recorder = fixture.do(test, http.MethodGet, "/api/appointments/"+appointmentID, strangerToken, nil)
	require.Equal(test, http.StatusNotFound, recorder.Code)

	recorder = fixture.do(test, http.MethodPost, "/api/appointments/"+appointmentID+"/cancel", customerToken, map[string]any{"reason": "plans changed"})
	require.Equal(test, http.StatusOK, recorder.Code, recorder.Body.String())
	recorder = fixture.do(test, http.MethodPost, "/api/appointments/"+appointmentID+"/cancel", customerToken, nil)
	require.Equal(test, http.StatusBadRequest, recorder.Code)

	recorder = fixture.do(test, http.MethodPatch, "/api/appointments/"+appointmentID+"/status", customerToken, map[string]any{})
	require.Equal(test, http.StatusBadRequest, recorder.Code)
	assert.Equal(test, errorCodeInvalidPayload, errorCode(test, recorder))
}

func TestStatusForError(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{err: booking.ErrInvalidOdometer, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{err: booking.ErrConcurrentUpdate, wantStatus: http.StatusBadRequest, wantCode: "invalid_transition"},
		{err: booking.ErrAboveRedeemableCap, wantStatus: http.StatusBadRequest, wantCode: "redemption_limit"},
		{err: booking.ErrForbiddenTransition, wantStatus: http.StatusForbidden, wantCode: "forbidden_transition"},
		{err: booking.ErrInvoiceNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{err: booking.ErrSlotFull, wantStatus: http.StatusConflict, wantCode: "admission_rejected"},
		{err: booking.ErrPriceLocked, wantStatus: http.StatusConflict, wantCode: "locked"},
		{err: booking.WrapError("store", "invoice", "update", booking.ErrInvoiceNotDraft), wantStatus: http.StatusConflict, wantCode: "locked"},
		{err: io.ErrUnexpectedEOF, wantStatus: http.StatusInternalServerError, wantCode: errorCodeInternal},
	}
	for _, testCase := range testCases {
		status, code := statusForError(testCase.err)
		require.Equal(test, testCase.wantStatus, status, testCase.err.Error())
		require.Equal(test, testCase.wantCode, code, testCase.err.Error())
	}
}

func TestConfigValidate(test *testing.T) {
	test.Parallel()
	cfg := Config{JWTSigningKey: "secret"}
	require.NoError(test, cfg.Validate())
	require.Equal(test, defaultListenAddr, cfg.ListenAddr)
	require.Equal(test, defaultRequestTimeout, cfg.RequestTimeout)
	require.Equal(test, []string{defaultAllowedOrigin}, cfg.AllowedOrigins)

	missingKey := Config{}
	require.Error(test, missingKey.Validate())

	require.Equal(test, []string{"https://a.example", "https://b.example"}, ParseAllowedOrigins(" https://a.example, ,https://b.example "))
	require.Empty(test, ParseAllowedOrigins(strings.Repeat(" ", 3)))
}
