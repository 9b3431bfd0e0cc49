package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/dto"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	"github.com/bitbender-8/cs-fy-project-sub000/internal/repository"
	appErrors "github.com/bitbender-8/cs-fy-project-sub000/pkg/errors"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/money"
)

type campaignRepoStub struct {
	campaigns map[string]*models.Campaign
	documents map[string][]models.CampaignDocument
	filter    models.CampaignFilter
	seq       int

	goalUpdates  map[string]money.Amount
	endUpdates   map[string]time.Time
	totalUpdates map[string]money.Amount
}

func newCampaignRepoStub() *campaignRepoStub {
	return &campaignRepoStub{
		campaigns:    make(map[string]*models.Campaign),
		documents:    make(map[string][]models.CampaignDocument),
		goalUpdates:  make(map[string]money.Amount),
		endUpdates:   make(map[string]time.Time),
		totalUpdates: make(map[string]money.Amount),
	}
}

func (s *campaignRepoStub) Create(ctx context.Context, campaign *models.Campaign) error {
	s.seq++
	if campaign.ID == "" {
		campaign.ID = fmt.Sprintf("camp-%d", s.seq)
	}
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusPendingReview
	}
	if campaign.SubmissionDate.IsZero() {
		campaign.SubmissionDate = time.Now().UTC()
	}
	stored := *campaign
	s.campaigns[campaign.ID] = &stored
	return nil
}

func (s *campaignRepoStub) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	if campaign, ok := s.campaigns[id]; ok {
		copy := *campaign
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *campaignRepoStub) List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, error) {
	s.filter = filter
	result := make([]models.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		result = append(result, *campaign)
	}
	return result, nil
}

func (s *campaignRepoStub) UpdateGoal(ctx context.Context, id string, goal money.Amount) error {
	campaign, ok := s.campaigns[id]
	if !ok {
		return sql.ErrNoRows
	}
	campaign.FundraisingGoal = goal
	s.goalUpdates[id] = goal
	return nil
}

func (s *campaignRepoStub) UpdateEndDate(ctx context.Context, id string, endDate time.Time) error {
	campaign, ok := s.campaigns[id]
	if !ok {
		return sql.ErrNoRows
	}
	campaign.EndDate = &endDate
	s.endUpdates[id] = endDate
	return nil
}

func (s *campaignRepoStub) UpdateStatusFields(ctx context.Context, campaign *models.Campaign) error {
	stored, ok := s.campaigns[campaign.ID]
	if !ok {
		return sql.ErrNoRows
	}
	*stored = *campaign
	return nil
}

func (s *campaignRepoStub) AddToTotalDonated(ctx context.Context, id string, delta money.Amount) error {
	campaign, ok := s.campaigns[id]
	if !ok {
		return sql.ErrNoRows
	}
	campaign.TotalDonated = campaign.TotalDonated.Add(delta)
	s.totalUpdates[id] = s.totalUpdates[id].Add(delta)
	return nil
}

func (s *campaignRepoStub) AddDocument(ctx context.Context, doc *models.CampaignDocument) error {
	s.seq++
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", s.seq)
	}
	s.documents[doc.CampaignID] = append(s.documents[doc.CampaignID], *doc)
	return nil
}

func (s *campaignRepoStub) ListDocuments(ctx context.Context, campaignID string) ([]models.CampaignDocument, error) {
	return s.documents[campaignID], nil
}

type postRepoStub struct {
	posts map[string]*models.CampaignPost
	seq   int
}

func newPostRepoStub() *postRepoStub {
	return &postRepoStub{posts: make(map[string]*models.CampaignPost)}
}

func (s *postRepoStub) Create(ctx context.Context, post *models.CampaignPost) error {
	s.seq++
	if post.ID == "" {
		post.ID = fmt.Sprintf("post-%d", s.seq)
	}
	stored := *post
	s.posts[post.ID] = &stored
	return nil
}

func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.CampaignPost, error) {
	if post, ok := s.posts[id]; ok {
		copy := *post
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *postRepoStub) ListByCampaign(ctx context.Context, campaignID string, publicOnly bool) ([]models.CampaignPost, error) {
	result := make([]models.CampaignPost, 0, len(s.posts))
	for _, post := range s.posts {
		if post.CampaignID != campaignID {
			continue
		}
		if publicOnly && !post.Public() {
			continue
		}
		result = append(result, *post)
	}
	return result, nil
}

func (s *postRepoStub) Publish(ctx context.Context, id string, publishedAt time.Time) error {
	post, ok := s.posts[id]
	if !ok {
		return sql.ErrNoRows
	}
	if post.PublicPostDate == nil {
		ts := publishedAt
		post.PublicPostDate = &ts
	}
	return nil
}

type requestRepoStub struct {
	requests map[string]*models.ChangeRequest
	filter   models.ChangeRequestFilter
	seq      int
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{requests: make(map[string]*models.ChangeRequest)}
}

func (s *requestRepoStub) Create(ctx context.Context, request *models.ChangeRequest) error {
	s.seq++
	if request.ID == "" {
		request.ID = fmt.Sprintf("req-%d", s.seq)
	}
	if request.RequestDate.IsZero() {
		request.RequestDate = time.Now().UTC()
	}
	stored := *request
	s.requests[request.ID] = &stored
	return nil
}

func (s *requestRepoStub) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	if request, ok := s.requests[id]; ok {
		copy := *request
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestRepoStub) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	s.filter = filter
	result := make([]models.ChangeRequest, 0, len(s.requests))
	for _, request := range s.requests {
		result = append(result, *request)
	}
	return result, nil
}

func (s *requestRepoStub) Resolve(ctx context.Context, params repository.ResolveParams) error {
	request, ok := s.requests[params.ID]
	if !ok || request.ResolutionType != nil {
		return sql.ErrNoRows
	}
	resolution := params.Resolution
	date := params.ResolutionDate
	request.ResolutionType = &resolution
	request.ResolutionDate = &date
	return nil
}

type notifierStub struct {
	direct      []string
	supervisors []string
}

func (n *notifierStub) Notify(userID, subject, body string) {
	n.direct = append(n.direct, userID+": "+subject)
}

func (n *notifierStub) NotifySupervisors(ctx context.Context, subject, body string) {
	n.supervisors = append(n.supervisors, subject)
}

func recipientClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleRecipient}
}

func supervisorClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleSupervisor}
}

func seedCampaign(repo *campaignRepoStub, id, recipientID string, status models.CampaignStatus) *models.Campaign {
	campaign := &models.Campaign{
		ID:              id,
		RecipientID:     recipientID,
		Title:           "Medical fund",
		Status:          status,
		FundraisingGoal: money.MustParse("1000.00"),
		SubmissionDate:  time.Now().UTC().Add(-24 * time.Hour),
		IsPublic:        status == models.CampaignStatusLive || status == models.CampaignStatusCompleted,
	}
	repo.campaigns[id] = campaign
	return campaign
}

func newChangeRequestFixture() (*ChangeRequestService, *requestRepoStub, *campaignRepoStub, *postRepoStub, *notifierStub) {
	requests := newRequestRepoStub()
	campaigns := newCampaignRepoStub()
	posts := newPostRepoStub()
	notifier := &notifierStub{}
	svc := NewChangeRequestService(requests, campaigns, posts, notifier, nil, nil)
	return svc, requests, campaigns, posts, notifier
}

func TestChangeRequestCreateGoalAdjustment(t *testing.T) {
	svc, requests, campaigns, _, notifier := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)

	request, err := svc.Create(context.Background(), dto.CreateChangeRequestRequest{
		CampaignID:    "camp-1",
		Type:          models.ChangeRequestTypeGoalAdjustment,
		Title:         "Raise the goal",
		Justification: "surgery costs increased",
		NewGoal:       "5000.00",
	}, recipientClaims("rcp-1"))
	require.NoError(t, err)
	require.False(t, request.Resolved())
	require.NotNil(t, request.NewGoal)
	require.Equal(t, money.MustParse("5000.00"), *request.NewGoal)
	require.Contains(t, requests.requests, request.ID)
	require.Len(t, notifier.supervisors, 1)
}

func TestChangeRequestCreateRejectsForeignCampaign(t *testing.T) {
	svc, _, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)

	_, err := svc.Create(context.Background(), dto.CreateChangeRequestRequest{
		CampaignID:    "camp-1",
		Type:          models.ChangeRequestTypeGoalAdjustment,
		Title:         "Raise the goal",
		Justification: "x",
		NewGoal:       "5000.00",
	}, recipientClaims("rcp-2"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestChangeRequestCreateRejectsMismatchedPayload(t *testing.T) {
	svc, _, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	paused := models.CampaignStatusPaused

	_, err := svc.Create(context.Background(), dto.CreateChangeRequestRequest{
		CampaignID:    "camp-1",
		Type:          models.ChangeRequestTypeGoalAdjustment,
		Title:         "Raise the goal",
		Justification: "x",
		NewGoal:       "5000.00",
		NewStatus:     &paused,
	}, recipientClaims("rcp-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestChangeRequestCreateAcceptsZeroGoal(t *testing.T) {
	svc, _, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)

	request, err := svc.Create(context.Background(), dto.CreateChangeRequestRequest{
		CampaignID:    "camp-1",
		Type:          models.ChangeRequestTypeGoalAdjustment,
		Title:         "Drop the target",
		Justification: "switching to an open-ended collection",
		NewGoal:       "0.00",
	}, recipientClaims("rcp-1"))
	require.NoError(t, err)
	require.NotNil(t, request.NewGoal)
	require.Equal(t, money.Amount(0), *request.NewGoal)
}

func TestChangeRequestCreateRejectsMalformedGoal(t *testing.T) {
	svc, _, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)

	for _, goal := range []string{"", "-1", "1.234", "abc"} {
		_, err := svc.Create(context.Background(), dto.CreateChangeRequestRequest{
			CampaignID:    "camp-1",
			Type:          models.ChangeRequestTypeGoalAdjustment,
			Title:         "Raise the goal",
			Justification: "x",
			NewGoal:       goal,
		}, recipientClaims("rcp-1"))
		require.True(t, appErrors.HasCode(err, appErrors.ErrValidation), "goal %q", goal)
	}
}

func TestChangeRequestCreateRejectsPastEndDate(t *testing.T) {
	svc, _, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)

	for _, endDate := range []time.Time{
		time.Now().UTC().Add(-24 * time.Hour),
		time.Now().UTC().Add(-time.Second),
	} {
		endDate := endDate
		_, err := svc.Create(context.Background(), dto.CreateChangeRequestRequest{
			CampaignID:    "camp-1",
			Type:          models.ChangeRequestTypeEndDateExtension,
			Title:         "Extend the campaign",
			Justification: "x",
			NewEndDate:    &endDate,
		}, recipientClaims("rcp-1"))
		require.True(t, appErrors.HasCode(err, appErrors.ErrValidation), "end date %v", endDate)
	}
}

func TestChangeRequestCreatePostUpdateStoresDraft(t *testing.T) {
	svc, _, campaigns, posts, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)

	request, err := svc.Create(context.Background(), dto.CreateChangeRequestRequest{
		CampaignID:    "camp-1",
		Type:          models.ChangeRequestTypePostUpdate,
		Title:         "Progress update",
		Justification: "monthly report",
		NewPost: &dto.NewPostPayload{
			Title:   "Month two",
			Content: "Treatment is going well.",
		},
	}, recipientClaims("rcp-1"))
	require.NoError(t, err)
	require.NotNil(t, request.NewPostID)

	draft, ok := posts.posts[*request.NewPostID]
	require.True(t, ok)
	require.Nil(t, draft.PublicPostDate)
	require.Equal(t, "camp-1", draft.CampaignID)
}

func TestChangeRequestResolveAcceptGoal(t *testing.T) {
	svc, requests, campaigns, _, notifier := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	goal := money.MustParse("5000.00")
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypeGoalAdjustment,
		NewGoal:    &goal,
	}

	resolved, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionAccepted}, supervisorClaims("sup-1"))
	require.NoError(t, err)
	require.True(t, resolved.Resolved())
	require.Equal(t, models.ResolutionAccepted, *resolved.ResolutionType)
	require.NotNil(t, resolved.ResolutionDate)
	require.Equal(t, goal, campaigns.campaigns["camp-1"].FundraisingGoal)
	require.Len(t, notifier.direct, 1)
}

func TestChangeRequestResolveAcceptEndDateExtension(t *testing.T) {
	svc, requests, campaigns, _, notifier := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	newEndDate := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypeEndDateExtension,
		NewEndDate: &newEndDate,
	}

	resolved, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionAccepted}, supervisorClaims("sup-1"))
	require.NoError(t, err)
	require.True(t, resolved.Resolved())
	require.Equal(t, newEndDate, campaigns.endUpdates["camp-1"])
	require.NotNil(t, campaigns.campaigns["camp-1"].EndDate)
	require.Equal(t, newEndDate, *campaigns.campaigns["camp-1"].EndDate)
	require.Len(t, notifier.direct, 1)
}

func TestChangeRequestResolveRejectLeavesCampaign(t *testing.T) {
	svc, requests, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	goal := money.MustParse("5000.00")
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypeGoalAdjustment,
		NewGoal:    &goal,
	}

	resolved, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionRejected}, supervisorClaims("sup-1"))
	require.NoError(t, err)
	require.Equal(t, models.ResolutionRejected, *resolved.ResolutionType)
	require.Equal(t, money.MustParse("1000.00"), campaigns.campaigns["camp-1"].FundraisingGoal)
	require.Empty(t, campaigns.goalUpdates)
}

func TestChangeRequestResolveIsWriteOnce(t *testing.T) {
	svc, requests, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	goal := money.MustParse("5000.00")
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypeGoalAdjustment,
		NewGoal:    &goal,
	}

	_, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionAccepted}, supervisorClaims("sup-1"))
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionRejected}, supervisorClaims("sup-2"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	require.Equal(t, models.ResolutionAccepted, *requests.requests["req-1"].ResolutionType)
}

func TestChangeRequestResolveStatusChangeAppliesTransition(t *testing.T) {
	svc, requests, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	paused := models.CampaignStatusPaused
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypeStatusChange,
		NewStatus:  &paused,
	}

	_, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionAccepted}, supervisorClaims("sup-1"))
	require.NoError(t, err)
	require.Equal(t, models.CampaignStatusPaused, campaigns.campaigns["camp-1"].Status)
}

func TestChangeRequestResolveIllegalTransitionFailsValidation(t *testing.T) {
	svc, requests, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	verified := models.CampaignStatusVerified
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypeStatusChange,
		NewStatus:  &verified,
	}

	_, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionAccepted}, supervisorClaims("sup-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	// The request stays pending when its effect cannot be applied.
	require.False(t, requests.requests["req-1"].Resolved())
	require.Equal(t, models.CampaignStatusLive, campaigns.campaigns["camp-1"].Status)
}

func TestChangeRequestResolveAcceptPostPublishes(t *testing.T) {
	svc, requests, campaigns, posts, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	posts.posts["post-1"] = &models.CampaignPost{ID: "post-1", CampaignID: "camp-1", Title: "Update", Content: "..."}
	postID := "post-1"
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypePostUpdate,
		NewPostID:  &postID,
	}

	resolved, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionAccepted}, supervisorClaims("sup-1"))
	require.NoError(t, err)
	require.NotNil(t, posts.posts["post-1"].PublicPostDate)
	require.NotNil(t, resolved.NewPost)
	require.True(t, resolved.NewPost.Public())
}

func TestChangeRequestResolveRequiresSupervisor(t *testing.T) {
	svc, requests, campaigns, _, _ := newChangeRequestFixture()
	seedCampaign(campaigns, "camp-1", "rcp-1", models.CampaignStatusLive)
	goal := money.MustParse("5000.00")
	requests.requests["req-1"] = &models.ChangeRequest{
		ID:         "req-1",
		CampaignID: "camp-1",
		Type:       models.ChangeRequestTypeGoalAdjustment,
		NewGoal:    &goal,
	}

	_, err := svc.Resolve(context.Background(), "req-1",
		dto.ResolveChangeRequestRequest{Resolution: models.ResolutionAccepted}, recipientClaims("rcp-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestChangeRequestListRecipientScoped(t *testing.T) {
	svc, requests, _, _, _ := newChangeRequestFixture()

	_, err := svc.List(context.Background(), dto.ChangeRequestQuery{PendingOnly: true}, recipientClaims("rcp-1"))
	require.NoError(t, err)
	require.Equal(t, "rcp-1", requests.filter.RecipientID)
	require.True(t, requests.filter.PendingOnly)
}
