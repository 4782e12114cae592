package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"outingrewards/internal/domain"
)

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		mock     func(mock sqlmock.Sqlmock)
		wantTier domain.Tier
		errIs    error
		wantErr  bool
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, tier\s+FROM users`).
					WithArgs("user-1").
					WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "tier"}).
						AddRow("user-1", "alice@example.com", "Alice", "PREMIUM"))
			},
			wantTier: domain.TierPremium,
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, tier`).
					WithArgs("user-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
			errIs:   domain.ErrNotFound,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, email, name, tier`).
					WithArgs("user-1").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewUserRepository(db)
			u, err := repo.GetByID(ctx, "user-1")
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantTier, u.Tier)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
