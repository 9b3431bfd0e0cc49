package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

func TestDonationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDonationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO donations")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	donation := &models.Donation{
		CampaignID:     "camp-1",
		GrossAmount:    money.MustParse("100.00"),
		ServiceFee:     money.MustParse("3.00"),
		TransactionRef: "tx-001",
	}
	require.NoError(t, repo.Create(context.Background(), donation))
	require.NotEmpty(t, donation.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepositoryListUntransferred(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDonationRepository(db)
	rows := sqlmock.NewRows([]string{"id", "campaign_id", "gross_amount", "service_fee", "transaction_ref", "is_transferred", "donated_at"}).
		AddRow("don-1", "camp-1", int64(10000), int64(300), "tx-001", false, time.Now()).
		AddRow("don-2", "camp-1", int64(5050), int64(150), "tx-002", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, campaign_id, gross_amount")).
		WithArgs("camp-1").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.DonationFilter{
		CampaignID:        "camp-1",
		UntransferredOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, money.Amount(10000), list[0].GrossAmount)
	require.Equal(t, money.Amount(9700), list[0].Net())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepositoryMarkTransferred(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDonationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE donations SET is_transferred = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.MarkTransferred(context.Background(), "camp-1", []string{"don-1", "don-2"}))

	// A short row count means another settlement raced us.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE donations SET is_transferred = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.MarkTransferred(context.Background(), "camp-1", []string{"don-1", "don-2"})
	require.Error(t, err)

	// Empty id set is a no-op.
	require.NoError(t, repo.MarkTransferred(context.Background(), "camp-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
