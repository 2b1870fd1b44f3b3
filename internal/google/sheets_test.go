package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type recordedCall struct {
	method string
	path   string
	body   sheets.ValueRange
}

type fakeSheetsAPI struct {
	mu     sync.Mutex
	calls  []recordedCall
	status int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{method: r.Method, path: r.URL.Path}
	if r.Method == http.MethodPut {
		_ = json.NewDecoder(r.Body).Decode(&call.body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, ":clear"):
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	case r.Method == http.MethodPut:
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	default:
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"رقم الإذن"}}})
	}
}

func setupMockServer(t *testing.T) (*fakeSheetsAPI, *SheetsService) {
	t.Helper()
	api := &fakeSheetsAPI{}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return api, NewSheetsServiceWith(srv, "ledger_tid")
}

func TestSheetsService_TestConnection(t *testing.T) {
	api, s := setupMockServer(t)

	require.NoError(t, s.TestConnection(context.Background()))
	require.Len(t, api.calls, 1)
	assert.Equal(t, http.MethodGet, api.calls[0].method)
	assert.Equal(t, "/v4/spreadsheets/ledger_tid/values/Orders!A1", api.calls[0].path)

	api.status = http.StatusForbidden
	assert.Error(t, s.TestConnection(context.Background()))
}

func TestSheetsService_ReplaceOrdersSheet(t *testing.T) {
	api, s := setupMockServer(t)

	dateIn := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{
			ID: "ord-1002", OrderNumber: 1002, PersonName: "محمد الكاسح", Type: models.OrderShooting,
			Status: models.OrderCompleted, DateOut: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), DateIn: &dateIn,
			Items: []models.OrderItem{{EquipmentName: "Sony FX3 Camera"}, {EquipmentName: "Tripod Sachtler"}},
			Notes: "إرجاع: بطارية ضعيفة", CreatedBy: "aziz",
		},
		{ID: "ord-1001", OrderNumber: 1001, Type: models.OrderLiveStream, Status: models.OrderActive},
	}

	require.NoError(t, s.ReplaceOrdersSheet(context.Background(), orders))

	require.Len(t, api.calls, 2)
	assert.Equal(t, "/v4/spreadsheets/ledger_tid/values/Orders!A:Z:clear", api.calls[0].path)
	assert.Equal(t, http.MethodPut, api.calls[1].method)
	assert.Equal(t, "/v4/spreadsheets/ledger_tid/values/Orders!A1", api.calls[1].path)

	values := api.calls[1].body.Values
	require.Len(t, values, 3)
	assert.Equal(t, "رقم الإذن", values[0][0])
	assert.EqualValues(t, 1002, values[1][0])
	assert.Equal(t, models.OrderShooting.Label(), values[1][3])
	assert.Equal(t, "2024-01-01 09:30", values[1][5])
	assert.Equal(t, "2024-01-02 00:00", values[1][6])
	assert.Equal(t, "Sony FX3 Camera، Tripod Sachtler", values[1][7])
	assert.Equal(t, "", values[2][6])
}

func TestSheetsService_ReplaceEquipmentSheet(t *testing.T) {
	api, s := setupMockServer(t)

	equipment := []models.Equipment{{
		ID: "eq-006", Name: "SanDisk Extreme Pro", Category: models.CategoryMemoryCard,
		Ownership: models.OwnershipChannel, Status: models.StatusAvailable, MediaType: models.MediaSD, Capacity: "128GB",
	}}

	require.NoError(t, s.ReplaceEquipmentSheet(context.Background(), equipment))

	require.Len(t, api.calls, 2)
	assert.Equal(t, "/v4/spreadsheets/ledger_tid/values/Equipment!A1", api.calls[1].path)
	values := api.calls[1].body.Values
	require.Len(t, values, 2)
	assert.Equal(t, "eq-006", values[1][0])
	assert.Equal(t, models.StatusAvailable.Label(), values[1][7])
	assert.Equal(t, "SD", values[1][10])
}

func TestSheetsService_ClearFailureSkipsUpdate(t *testing.T) {
	api, s := setupMockServer(t)
	api.status = http.StatusForbidden

	err := s.ReplaceEquipmentSheet(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear Equipment")
	assert.Len(t, api.calls, 1)
}

func TestServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_email":"tms@project.iam.gserviceaccount.com"}`), 0o600))

	email, err := ServiceAccountEmail(path)
	require.NoError(t, err)
	assert.Equal(t, "tms@project.iam.gserviceaccount.com", email)

	_, err = ServiceAccountEmail(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewSheetsService_BadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	_, err := NewSheetsService(context.Background(), path, "id")
	assert.Error(t, err)
}
