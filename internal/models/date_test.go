package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain date", input: "2025-03-14", want: "2025-03-14"},
		{name: "timestamp with zone keeps literal date", input: "2025-03-14T23:30:00+07:00", want: "2025-03-14"},
		{name: "utc timestamp", input: "2025-03-14T01:00:00Z", want: "2025-03-14"},
		{name: "space separated time", input: "2025-03-14 08:00:00", want: "2025-03-14"},
		{name: "garbage", input: "next tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseOptionalDate_Empty(t *testing.T) {
	d, err := ParseOptionalDate("  ")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDate_AddDaysCrossesMonth(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.AddDays(1).String())
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Day *Date `json:"day"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2025-01-31T10:00:00.000Z"}`), &payload))
	require.NotNil(t, payload.Day)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2025-01-31"}`, string(out))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan([]byte("2025-06-01")))
	assert.Equal(t, "2025-06-01", d.String())

	require.NoError(t, d.Scan(time.Date(2025, 7, 2, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-07-02", d.String())

	assert.Error(t, d.Scan(42))
}

func TestTask_Involves(t *testing.T) {
	sit := "u-sit"
	task := Task{CreatedBy: "u-creator", AssignedTo: "u-assignee", SITSupport: &sit}

	assert.True(t, task.Involves("u-creator"))
	assert.True(t, task.Involves("u-assignee"))
	assert.True(t, task.Involves("u-sit"))
	assert.False(t, task.Involves("u-stranger"))
	assert.False(t, task.Involves(""))
}
