package responseformat

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type sample struct {
	Date   string  `json:"date"`
	Energy float64 `json:"pred_kWh"`
}

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/daily_forecast", nil)

	require.NoError(t, NewFormatter().WriteResponse(rec, req, []sample{{"2024-06-01", 12.5}}, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"date":"2024-06-01","pred_kWh":12.5}]`, rec.Body.String())
}

func TestWriteResponseMsgPackUsesJSONTags(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/daily_forecast?format=msgpack", nil)

	require.NoError(t, NewFormatter().WriteResponse(rec, req, sample{"2024-06-01", 3}, map[string]string{"X-Test": "1"}))
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Test"))

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2024-06-01", got["date"])
	assert.EqualValues(t, 3, got["pred_kWh"])
}

func TestWriteStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewFormatter().WriteStatus(rec, nil, http.StatusBadRequest, map[string]string{"detail": "nope"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"nope"}`, rec.Body.String())
}

func TestWriteCSV(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewFormatter().WriteCSV(rec, "forecast.csv", []string{"time", "pred_W"}, [][]string{
		{"2024-06-01T10:00:00Z", "512.5"},
		{"2024-06-01T11:00:00Z", "640"},
	})
	require.NoError(t, err)
	assert.Equal(t, "attachment; filename=forecast.csv", rec.Header().Get("Content-Disposition"))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"time", "pred_W"}, rows[0])
	assert.Equal(t, "640", rows[2][1])
}
