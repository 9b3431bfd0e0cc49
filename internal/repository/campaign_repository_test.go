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

func TestCampaignRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCampaignRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO campaigns")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	campaign := &models.Campaign{
		RecipientID:     "user-1",
		Title:           "School fees",
		Description:     "Tuition support",
		FundraisingGoal: money.MustParse("2500.00"),
	}
	require.NoError(t, repo.Create(context.Background(), campaign))
	require.NotEmpty(t, campaign.ID)
	require.Equal(t, models.CampaignStatusPendingReview, campaign.Status)
	require.False(t, campaign.SubmissionDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCampaignRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "recipient_id", "title", "description", "status",
		"fundraising_goal", "total_donated", "submission_date", "verification_date", "denial_date",
		"launch_date", "end_date", "is_public", "created_at", "updated_at"}).
		AddRow("camp-1", "user-1", "School fees", "Tuition support", "LIVE",
			int64(250000), int64(14600), now, now, nil, now, nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, recipient_id, title")).
		WithArgs("camp-1").
		WillReturnRows(rows)

	campaign, err := repo.GetByID(context.Background(), "camp-1")
	require.NoError(t, err)
	require.Equal(t, models.CampaignStatusLive, campaign.Status)
	require.Equal(t, money.Amount(250000), campaign.FundraisingGoal)
	require.True(t, campaign.IsPublic)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCampaignRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "recipient_id", "title", "description", "status",
		"fundraising_goal", "total_donated", "submission_date", "verification_date", "denial_date",
		"launch_date", "end_date", "is_public", "created_at", "updated_at"}).
		AddRow("camp-1", "user-1", "School fees", "Tuition support", "LIVE",
			int64(250000), int64(0), now, now, nil, now, nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, recipient_id, title")).
		WithArgs("LIVE").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.CampaignFilter{
		Status:     []models.CampaignStatus{models.CampaignStatusLive},
		PublicOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositoryUpdateGoalMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCampaignRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET fundraising_goal")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGoal(context.Background(), "missing", money.MustParse("10.00"))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepositoryUpdateStatusFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCampaignRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	campaign := &models.Campaign{
		ID:         "camp-1",
		Status:     models.CampaignStatusLive,
		LaunchDate: &now,
		IsPublic:   true,
	}
	require.NoError(t, repo.UpdateStatusFields(context.Background(), campaign))
	require.NoError(t, mock.ExpectationsWereMet())
}
