package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aozora-apps/sms-cli/internal/model"
)

func TestPostgresSaveEntry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	mock.ExpectExec(`INSERT INTO history_entries`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "山田 太郎", "09012345678", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	e := model.HistoryEntry{Name: "山田 太郎", Phone: "+81 90 1234 5678"}
	err = s.SaveEntry(context.Background(), "user-1", &e)

	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.NotZero(t, e.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	payload, err := json.Marshal(model.HistoryEntry{ID: "e-1", Name: "山田"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM history_entries`).
		WithArgs("user-1", 500).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	entries, err := s.ListEntries(context.Background(), "user-1", 0)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "山田", entries[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHasRecentEntry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	since := time.Now().Add(-2 * time.Minute)
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM history_entries`).
		WithArgs("user-1", "山田", "09012345678", since.UnixMilli()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	got, err := s.HasRecentEntry(context.Background(), "user-1", "山田", "819012345678", since)

	require.NoError(t, err)
	assert.True(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountEntries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM history_entries`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountEntries(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateEntryNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	mock.ExpectExec(`UPDATE history_entries SET`).
		WithArgs(pgxmock.AnyArg(), "x", "", "missing-id", "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = s.UpdateEntry(context.Background(), "user-1", &model.HistoryEntry{ID: "missing-id", Name: "x"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUserConfigAbsent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	mock.ExpectQuery(`SELECT config FROM user_configs`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"config"}))

	cfg, err := s.GetUserConfig(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUserConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	raw, err := json.Marshal(model.UserConfig{
		SmsConfig: model.SmsConfig{APIURL: "https://gw.example.com", APIID: "id", APIPassword: "pw"},
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT config FROM user_configs`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"config"}).AddRow(raw))

	cfg, err := s.GetUserConfig(context.Background(), "user-1")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, cfg.SmsConfig.Complete())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutUserConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)

	mock.ExpectExec(`INSERT INTO user_configs`).
		WithArgs("user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.PutUserConfig(context.Background(), "user-1", model.UserConfig{})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
