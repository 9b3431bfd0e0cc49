package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/config"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/export"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/transfer"
)

type settlementCampaignStore interface {
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
}

type settlementDonationStore interface {
	List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error)
	MarkTransferred(ctx context.Context, campaignID string, ids []string) error
}

type settlementUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type transferInitiator interface {
	InitiateTransfer(ctx context.Context, req transfer.Request) (*transfer.Result, error)
}

type receiptRenderer interface {
	Render(data export.ReceiptData) ([]byte, error)
}

type receiptStore interface {
	Save(filename string, data []byte) (string, error)
}

type receiptSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
}

// SettlementLocker serialises settlement attempts per campaign.
type SettlementLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLocker implements SettlementLocker with SET NX leases.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker wraps a Redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lease when no holder exists.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
}

// Release drops the lease.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// SettlementService moves accumulated donation money to the campaign's
// recipient. One attempt per campaign runs at a time; the transfer provider
// is called at most once per attempt.
type SettlementService struct {
	campaigns settlementCampaignStore
	donations settlementDonationStore
	users     settlementUserStore
	provider  transferInitiator
	locker    SettlementLocker
	receipts  receiptRenderer
	storage   receiptStore
	signer    receiptSigner
	notifier  campaignNotifier
	metrics   *MetricsService
	logger    *zap.Logger

	lockTTL  time.Duration
	currency string
}

// NewSettlementService constructs the service.
func NewSettlementService(
	campaigns settlementCampaignStore,
	donations settlementDonationStore,
	users settlementUserStore,
	provider transferInitiator,
	locker SettlementLocker,
	receipts receiptRenderer,
	storage receiptStore,
	signer receiptSigner,
	notifier campaignNotifier,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg config.SettlementConfig,
	currency string,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &SettlementService{
		campaigns: campaigns,
		donations: donations,
		users:     users,
		provider:  provider,
		locker:    locker,
		receipts:  receipts,
		storage:   storage,
		signer:    signer,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		lockTTL:   lockTTL,
		currency:  currency,
	}
}

func settlementLockKey(campaignID string) string {
	return "settlement:lock:" + campaignID
}

// Settle aggregates the campaign's untransferred donations, transfers the
// exact net total to the recipient, and marks the donations transferred.
// Supervisor only. When nothing is owed the result reports NothingToTransfer
// and no provider call is made.
func (s *SettlementService) Settle(ctx context.Context, campaignID string, actor *models.JWTClaims) (*models.SettlementResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSupervisor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only supervisors can settle campaigns")
	}

	lockKey := settlementLockKey(campaignID)
	acquired, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire settlement lease")
	}
	if !acquired {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a settlement for this campaign is already in progress")
	}
	releaseLock := true
	defer func() {
		if !releaseLock {
			return
		}
		if err := s.locker.Release(ctx, lockKey); err != nil {
			s.logger.Warn("failed to release settlement lease",
				zap.Error(err), zap.String("campaign_id", campaignID))
		}
	}()

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campaign")
	}

	recipient, err := s.users.FindByID(ctx, campaign.RecipientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}
	if recipient.AccountNumber == "" || recipient.BankCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient has no payout destination on file")
	}

	donations, err := s.donations.List(ctx, models.DonationFilter{
		CampaignID:        campaign.ID,
		UntransferredOnly: true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unsettled donations")
	}

	now := time.Now().UTC()
	var net money.Amount
	ids := make([]string, 0, len(donations))
	for i := range donations {
		net = net.Add(donations[i].Net())
		ids = append(ids, donations[i].ID)
	}
	if len(donations) == 0 || net <= 0 {
		s.metrics.ObserveSettlement("nothing_to_transfer", 0)
		return &models.SettlementResult{
			CampaignID:        campaign.ID,
			NothingToTransfer: true,
			SettledAt:         now,
		}, nil
	}

	reference := uuid.NewString()
	result, err := s.provider.InitiateTransfer(ctx, transfer.Request{
		AccountNumber: recipient.AccountNumber,
		BankCode:      recipient.BankCode,
		Amount:        net,
		Currency:      s.currency,
		Reference:     reference,
	})
	if err != nil {
		s.metrics.ObserveSettlement("dependency_failure", 0)
		return nil, appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code,
			appErrors.ErrDependencyFailure.Status, appErrors.ErrDependencyFailure.Message)
	}

	if err := s.donations.MarkTransferred(ctx, campaign.ID, ids); err != nil {
		// Money has moved but the donations remain marked unsettled. The
		// lease is left to expire so nothing retries inside the window.
		releaseLock = false
		s.metrics.ObserveSettlement("inconsistent_state", 0)
		s.logger.Error("transfer initiated but donations not marked transferred",
			zap.Error(err),
			zap.String("campaign_id", campaign.ID),
			zap.String("reference", reference),
			zap.String("provider_reference", result.ProviderReference),
			zap.Int64("net_minor_units", int64(net)))
		return nil, appErrors.Wrap(err, appErrors.ErrInconsistentState.Code,
			appErrors.ErrInconsistentState.Status, appErrors.ErrInconsistentState.Message)
	}

	settlement := &models.SettlementResult{
		CampaignID:        campaign.ID,
		Reference:         reference,
		ProviderReference: result.ProviderReference,
		NetAmount:         net,
		DonationCount:     len(donations),
		SettledAt:         now,
	}
	settlement.ReceiptURL = s.writeReceipt(campaign, recipient, donations, settlement)

	s.metrics.ObserveSettlement("transferred", int64(net))
	if s.notifier != nil {
		s.notifier.Notify(recipient.ID, "Settlement completed",
			fmt.Sprintf("%s %s has been transferred for campaign %q.", net.String(), s.currency, campaign.Title))
	}
	return settlement, nil
}

// writeReceipt renders and stores the PDF receipt. Receipt failures never
// fail the settlement; the transfer is already complete.
func (s *SettlementService) writeReceipt(campaign *models.Campaign, recipient *models.User, donations []models.Donation, settlement *models.SettlementResult) string {
	if s.receipts == nil || s.storage == nil {
		return ""
	}
	lines := make([]export.ReceiptLine, 0, len(donations))
	for i := range donations {
		lines = append(lines, export.ReceiptLine{
			DonationID:     donations[i].ID,
			TransactionRef: donations[i].TransactionRef,
			Gross:          donations[i].GrossAmount,
			ServiceFee:     donations[i].ServiceFee,
			Net:            donations[i].Net(),
		})
	}
	pdf, err := s.receipts.Render(export.ReceiptData{
		Reference:         settlement.Reference,
		ProviderReference: settlement.ProviderReference,
		CampaignTitle:     campaign.Title,
		RecipientName:     recipient.FullName,
		Currency:          s.currency,
		NetAmount:         settlement.NetAmount,
		SettledAt:         settlement.SettledAt,
		Lines:             lines,
	})
	if err != nil {
		s.logger.Warn("failed to render settlement receipt",
			zap.Error(err), zap.String("reference", settlement.Reference))
		return ""
	}

	relPath := fmt.Sprintf("receipts/%s.pdf", settlement.Reference)
	if _, err := s.storage.Save(relPath, pdf); err != nil {
		s.logger.Warn("failed to store settlement receipt",
			zap.Error(err), zap.String("reference", settlement.Reference))
		return ""
	}
	if s.signer == nil {
		return relPath
	}
	token, _, err := s.signer.Generate(settlement.Reference, relPath)
	if err != nil {
		s.logger.Warn("failed to sign settlement receipt URL",
			zap.Error(err), zap.String("reference", settlement.Reference))
		return relPath
	}
	return "/receipts/" + token
}
