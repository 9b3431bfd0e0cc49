package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/config"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/export"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/transfer"
)

type donationRepoStub struct {
	donations []*models.Donation
	markErr   error
	marked    []string
}

func (s *donationRepoStub) Create(ctx context.Context, donation *models.Donation) error {
	for _, existing := range s.donations {
		if existing.TransactionRef == donation.TransactionRef {
			return fmt.Errorf("duplicate transaction reference")
		}
	}
	if donation.ID == "" {
		donation.ID = fmt.Sprintf("don-%d", len(s.donations)+1)
	}
	if donation.DonatedAt.IsZero() {
		donation.DonatedAt = time.Now().UTC()
	}
	stored := *donation
	s.donations = append(s.donations, &stored)
	return nil
}

func (s *donationRepoStub) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	result := make([]models.Donation, 0, len(s.donations))
	for _, donation := range s.donations {
		if filter.CampaignID != "" && donation.CampaignID != filter.CampaignID {
			continue
		}
		if filter.UntransferredOnly && donation.IsTransferred {
			continue
		}
		result = append(result, *donation)
	}
	return result, nil
}

func (s *donationRepoStub) MarkTransferred(ctx context.Context, campaignID string, ids []string) error {
	if s.markErr != nil {
		return s.markErr
	}
	matched := 0
	for _, donation := range s.donations {
		for _, id := range ids {
			if donation.ID == id && donation.CampaignID == campaignID && !donation.IsTransferred {
				donation.IsTransferred = true
				matched++
			}
		}
	}
	if matched != len(ids) {
		return sql.ErrNoRows
	}
	s.marked = append(s.marked, ids...)
	return nil
}

type userRepoStub struct {
	users map[string]*models.User
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type lockerStub struct {
	held     map[string]bool
	acquires int
	releases int
}

func newLockerStub() *lockerStub {
	return &lockerStub{held: make(map[string]bool)}
}

func (l *lockerStub) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.acquires++
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *lockerStub) Release(ctx context.Context, key string) error {
	l.releases++
	delete(l.held, key)
	return nil
}

type providerStub struct {
	calls []transfer.Request
	err   error
}

func (p *providerStub) InitiateTransfer(ctx context.Context, req transfer.Request) (*transfer.Result, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return &transfer.Result{ProviderReference: "prov-" + req.Reference}, nil
}

type receiptStub struct {
	rendered []export.ReceiptData
	saved    map[string][]byte
}

func newReceiptStub() *receiptStub {
	return &receiptStub{saved: make(map[string][]byte)}
}

func (r *receiptStub) Render(data export.ReceiptData) ([]byte, error) {
	r.rendered = append(r.rendered, data)
	return []byte("%PDF"), nil
}

func (r *receiptStub) Save(filename string, data []byte) (string, error) {
	r.saved[filename] = data
	return filename, nil
}

func (r *receiptStub) Generate(resourceID, relPath string) (string, time.Time, error) {
	return resourceID + ".token", time.Now().Add(time.Hour), nil
}

type settlementFixture struct {
	svc       *SettlementService
	campaigns *campaignRepoStub
	donations *donationRepoStub
	users     *userRepoStub
	provider  *providerStub
	locker    *lockerStub
	receipts  *receiptStub
	notifier  *notifierStub
}

func newSettlementFixture() *settlementFixture {
	campaigns := newCampaignRepoStub()
	donations := &donationRepoStub{}
	users := &userRepoStub{users: make(map[string]*models.User)}
	provider := &providerStub{}
	locker := newLockerStub()
	receipts := newReceiptStub()
	notifier := &notifierStub{}

	svc := NewSettlementService(campaigns, donations, users, provider, locker,
		receipts, receipts, receipts, notifier, nil, nil,
		config.SettlementConfig{LockTTL: time.Minute}, "ETB")

	return &settlementFixture{
		svc:       svc,
		campaigns: campaigns,
		donations: donations,
		users:     users,
		provider:  provider,
		locker:    locker,
		receipts:  receipts,
		notifier:  notifier,
	}
}

func (f *settlementFixture) seed() {
	seedCampaign(f.campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	f.users.users["rcp-1"] = &models.User{
		ID:            "rcp-1",
		FullName:      "Abebe Kebede",
		Role:          models.RoleRecipient,
		Active:        true,
		AccountNumber: "1000123456",
		BankCode:      "880",
	}
}

func (f *settlementFixture) seedDonation(id, ref, gross, fee string, transferred bool) {
	f.donations.donations = append(f.donations.donations, &models.Donation{
		ID:             id,
		CampaignID:     "camp-1",
		GrossAmount:    money.MustParse(gross),
		ServiceFee:     money.MustParse(fee),
		TransactionRef: ref,
		IsTransferred:  transferred,
		DonatedAt:      time.Now().UTC(),
	})
}

func TestSettleTransfersExactNet(t *testing.T) {
	f := newSettlementFixture()
	f.seed()
	f.seedDonation("don-1", "tx-1", "100.00", "3.00", false)
	f.seedDonation("don-2", "tx-2", "50.50", "1.50", false)
	f.seedDonation("don-3", "tx-3", "20.00", "1.00", true)

	result, err := f.svc.Settle(context.Background(), "camp-1", supervisorClaims("sup-1"))
	require.NoError(t, err)
	require.False(t, result.NothingToTransfer)

	// (100.00 - 3.00) + (50.50 - 1.50) = 146.00 in minor units.
	require.Equal(t, money.MustParse("146.00"), result.NetAmount)
	require.Equal(t, 2, result.DonationCount)
	require.NotEmpty(t, result.Reference)
	require.Equal(t, "prov-"+result.Reference, result.ProviderReference)

	require.Len(t, f.provider.calls, 1)
	call := f.provider.calls[0]
	require.Equal(t, money.MustParse("146.00"), call.Amount)
	require.Equal(t, "1000123456", call.AccountNumber)
	require.Equal(t, "880", call.BankCode)
	require.Equal(t, "ETB", call.Currency)

	require.ElementsMatch(t, []string{"don-1", "don-2"}, f.donations.marked)
	require.Contains(t, f.receipts.saved, fmt.Sprintf("receipts/%s.pdf", result.Reference))
	require.Equal(t, "/receipts/"+result.Reference+".token", result.ReceiptURL)
	require.Len(t, f.notifier.direct, 1)
	require.Empty(t, f.locker.held)
}

func TestSettleNothingToTransfer(t *testing.T) {
	f := newSettlementFixture()
	f.seed()
	f.seedDonation("don-1", "tx-1", "20.00", "1.00", true)

	result, err := f.svc.Settle(context.Background(), "camp-1", supervisorClaims("sup-1"))
	require.NoError(t, err)
	require.True(t, result.NothingToTransfer)
	require.Equal(t, money.Amount(0), result.NetAmount)
	require.Empty(t, result.Reference)
	require.Empty(t, f.provider.calls)
	require.Empty(t, f.locker.held)
}

func TestSettleConcurrentAttemptConflicts(t *testing.T) {
	f := newSettlementFixture()
	f.seed()
	f.locker.held[settlementLockKey("camp-1")] = true

	_, err := f.svc.Settle(context.Background(), "camp-1", supervisorClaims("sup-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	require.Empty(t, f.provider.calls)
	require.Zero(t, f.locker.releases)
}

func TestSettleProviderFailure(t *testing.T) {
	f := newSettlementFixture()
	f.seed()
	f.seedDonation("don-1", "tx-1", "100.00", "3.00", false)
	f.provider.err = errors.New("insufficient balance")

	_, err := f.svc.Settle(context.Background(), "camp-1", supervisorClaims("sup-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrDependencyFailure))

	// Nothing was marked transferred; the attempt is retryable after the
	// lease clears.
	require.False(t, f.donations.donations[0].IsTransferred)
	require.Empty(t, f.locker.held)
}

func TestSettleMarkFailureIsInconsistentState(t *testing.T) {
	f := newSettlementFixture()
	f.seed()
	f.seedDonation("don-1", "tx-1", "100.00", "3.00", false)
	f.donations.markErr = errors.New("connection reset")

	_, err := f.svc.Settle(context.Background(), "camp-1", supervisorClaims("sup-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrInconsistentState))
	require.False(t, appErrors.HasCode(err, appErrors.ErrDependencyFailure))

	// The transfer happened; the lease stays held until it expires.
	require.Len(t, f.provider.calls, 1)
	require.Contains(t, f.locker.held, settlementLockKey("camp-1"))
	require.Zero(t, f.locker.releases)
}

func TestSettleRequiresSupervisor(t *testing.T) {
	f := newSettlementFixture()
	f.seed()

	_, err := f.svc.Settle(context.Background(), "camp-1", recipientClaims("rcp-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	require.Zero(t, f.locker.acquires)
}

func TestSettleMissingPayoutDestination(t *testing.T) {
	f := newSettlementFixture()
	seedCampaign(f.campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	f.users.users["rcp-1"] = &models.User{ID: "rcp-1", Role: models.RoleRecipient, Active: true}
	f.seedDonation("don-1", "tx-1", "100.00", "3.00", false)

	_, err := f.svc.Settle(context.Background(), "camp-1", supervisorClaims("sup-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	require.Empty(t, f.provider.calls)
}

func TestSettleUnknownCampaign(t *testing.T) {
	f := newSettlementFixture()

	_, err := f.svc.Settle(context.Background(), "missing", supervisorClaims("sup-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
