// Package requests runs the request lifecycle state machine. A request moves
// pending to approved or rejected, and an approved request to completed or
// cancelled. The status field is authoritative; quantity side effects are
// best-effort and reconciled out of band when they fail.
package requests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecoforge/ecoforge-backend/internal/donations"
	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/internal/notifications"
	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/internal/quantity"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Service defines request lifecycle operations.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Request, error)
	Get(ctx context.Context, requestID string) (*models.Request, error)
	List(ctx context.Context, params ListParams) ([]models.Request, error)
	Edit(ctx context.Context, input EditInput) (*models.Request, error)
	Approve(ctx context.Context, actorID, requestID string) (*models.Request, error)
	Reject(ctx context.Context, actorID, requestID string) (*models.Request, error)
	Cancel(ctx context.Context, actorID, requestID string) (*models.Request, error)
	UpdateDelivery(ctx context.Context, input DeliveryInput) (*models.Request, error)
	Delete(ctx context.Context, actorID, requestID string) error
}

type service struct {
	repo     Repository
	donos    donations.Service
	ledger   quantity.Ledger
	projects projects.Service
	rewards  gamification.Service
	notifier notifications.Service
	logg     *logger.Logger
}

// SubmitInput creates a pending request against a donation. MaterialID is
// informational; reconciliation matches materials by title.
type SubmitInput struct {
	RequesterID string
	DonationID  string
	Title       string
	Quantity    int
	Urgency     string
	ProjectID   string
	MaterialID  string
}

// EditInput changes a pending request. Quantity is not re-validated against
// current donation availability; the approve step is the authoritative check.
type EditInput struct {
	ActorID   string
	RequestID string
	Quantity  *int
	Urgency   *string
}

// DeliveryInput moves an approved request along the delivery chain. AsAdmin
// marks an operator acting on behalf of the logistics flow.
type DeliveryInput struct {
	ActorID   string
	RequestID string
	Status    enums.DeliveryStatus
	AsAdmin   bool
}

// ListParams filters request listings.
type ListParams struct {
	RequesterID string
	OwnerID     string
	DonationID  string
}

// ServiceParams wires request lifecycle dependencies.
type ServiceParams struct {
	Repo      Repository
	Donations donations.Service
	Ledger    quantity.Ledger
	Projects  projects.Service
	Rewards   gamification.Service
	Notifier  notifications.Service
	Logger    *logger.Logger
}

// NewService wires the request lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests repository required")
	}
	if params.Donations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "donations service required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quantity ledger required")
	}
	if params.Projects == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "projects service required")
	}
	if params.Rewards == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gamification service required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests logger required")
	}
	return &service{
		repo:     params.Repo,
		donos:    params.Donations,
		ledger:   params.Ledger,
		projects: params.Projects,
		rewards:  params.Rewards,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Request, error) {
	if input.RequesterID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	donation, err := s.donos.Get(ctx, input.DonationID)
	if err != nil {
		return nil, err
	}
	if donation.OwnerID == input.RequesterID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot request your own donation")
	}
	if donation.Quantity < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds what remains")
	}

	request := models.Request{
		ID:          uuid.NewString(),
		DonationID:  input.DonationID,
		RequesterID: input.RequesterID,
		OwnerID:     donation.OwnerID,
		Title:       input.Title,
		Status:      enums.RequestStatusPending,
		Quantity:    input.Quantity,
		Urgency:     input.Urgency,
		ProjectID:   input.ProjectID,
		MaterialID:  input.MaterialID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
	}

	s.notify(ctx, donation.OwnerID, "New donation request",
		fmt.Sprintf("Someone requested %d %s of your donation.", request.Quantity, donation.Unit),
		string(enums.NotificationSeverityInfo), request.ID)
	return &request, nil
}

func (s *service) Get(ctx context.Context, requestID string) (*models.Request, error) {
	return s.load(ctx, requestID)
}

func (s *service) load(ctx context.Context, requestID string) (*models.Request, error) {
	if requestID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.Get(ctx, requestID)
	if errors.Is(err, keytree.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Request, error) {
	byID, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}

	items := make([]models.Request, 0, len(byID))
	for id, request := range byID {
		request.ID = id
		if params.RequesterID != "" && request.RequesterID != params.RequesterID {
			continue
		}
		if params.OwnerID != "" && request.OwnerID != params.OwnerID {
			continue
		}
		if params.DonationID != "" && request.DonationID != params.DonationID {
			continue
		}
		items = append(items, request)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *service) Edit(ctx context.Context, input EditInput) (*models.Request, error) {
	request, err := s.load(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can edit a request")
	}
	if request.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be edited")
	}

	fields := map[string]any{}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		fields["quantity"] = *input.Quantity
	}
	if input.Urgency != nil {
		fields["urgency"] = *input.Urgency
	}
	if len(fields) == 0 {
		return request, nil
	}
	if err := s.repo.Update(ctx, input.RequestID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
	}
	return s.load(ctx, input.RequestID)
}

// Approve debits the donation and transitions the request. The debit is
// authoritative: if it refuses, nothing changes. The material credit and the
// notification are best-effort; their failure never unwinds the approval.
func (s *service) Approve(ctx context.Context, actorID, requestID string) (*models.Request, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the donation owner can approve")
	}
	if request.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be approved")
	}

	_, err = s.ledger.Adjust(ctx, donations.QuantityPath(request.DonationID), -request.Quantity, quantity.Options{
		Strict: true,
	})
	if errors.Is(err, quantity.ErrInsufficient) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation no longer has enough quantity")
	}
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithRequestID(ctx, requestID)
	backfilled := false
	if request.ProjectID != "" {
		materialID, creditErr := s.projects.CreditMatchingMaterial(ctx, request.ProjectID, request.Title, request.Quantity)
		if creditErr != nil {
			s.logg.Error(ctx, "requests.approve material credit failed", creditErr)
		} else if materialID != "" {
			backfilled = true
		}
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"status":         string(enums.RequestStatusApproved),
		"deliveryStatus": string(enums.DeliveryStatusPendingItem),
		"processingDate": now.Format(time.RFC3339Nano),
	}
	if backfilled {
		fields["materialBackfilled"] = true
	}
	if err := s.repo.Update(ctx, requestID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
	}

	s.notify(ctx, request.RequesterID, "Request approved",
		"Your donation request was approved and is awaiting the item.",
		string(enums.NotificationSeveritySuccess), requestID)
	return s.load(ctx, requestID)
}

func (s *service) Reject(ctx context.Context, actorID, requestID string) (*models.Request, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the donation owner can reject")
	}
	if request.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be rejected")
	}

	if err := s.repo.Update(ctx, requestID, map[string]any{
		"status": string(enums.RequestStatusRejected),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
	}

	s.notify(ctx, request.RequesterID, "Request rejected",
		"Your donation request was declined by the owner.",
		string(enums.NotificationSeverityWarning), requestID)
	return s.load(ctx, requestID)
}

// Cancel is allowed only before the item is physically in motion. A request
// that was approved gives its quantity back to the donation.
func (s *service) Cancel(ctx context.Context, actorID, requestID string) (*models.Request, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can cancel")
	}
	if request.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request already settled")
	}
	if !request.DeliveryStatus.InMotion() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item is already in motion")
	}

	if request.Status == enums.RequestStatusApproved {
		_, err := s.ledger.Adjust(ctx, donations.QuantityPath(request.DonationID), request.Quantity, quantity.Options{})
		if err != nil {
			s.logg.Error(s.logg.WithRequestID(ctx, requestID), "requests.cancel quantity restore failed", err)
		}
	}

	now := time.Now().UTC()
	if err := s.repo.Update(ctx, requestID, map[string]any{
		"status":         string(enums.RequestStatusCancelled),
		"deliveryStatus": string(enums.DeliveryStatusCancelled),
		"cancelledDate":  now.Format(time.RFC3339Nano),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
	}

	s.notify(ctx, request.OwnerID, "Request cancelled",
		"A request against your donation was cancelled and its quantity restored.",
		string(enums.NotificationSeverityInfo), requestID)
	return s.load(ctx, requestID)
}

// UpdateDelivery moves an approved request along the delivery chain. Reaching
// Delivered forces the completed status; the first entry into completed pays
// the owner's donation reward.
func (s *service) UpdateDelivery(ctx context.Context, input DeliveryInput) (*models.Request, error) {
	if !input.Status.IsValid() || input.Status == enums.DeliveryStatusNone {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status")
	}
	if input.Status == enums.DeliveryStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel through the cancel operation")
	}
	request, err := s.load(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if !input.AsAdmin && request.OwnerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the donation owner can update delivery")
	}
	switch request.Status {
	case enums.RequestStatusApproved:
	case enums.RequestStatusCompleted:
		// Completed pairs with Delivered; only a repeat of Delivered is accepted.
		if input.Status != enums.DeliveryStatusDelivered {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a completed request cannot leave Delivered")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery applies to approved requests only")
	}

	now := time.Now().UTC()
	fields := map[string]any{"deliveryStatus": string(input.Status)}
	if input.Status == enums.DeliveryStatusReadyForPickup && request.PickupDate == nil {
		fields["pickupDate"] = now.Format(time.RFC3339Nano)
	}

	firstCompletion := false
	if input.Status == enums.DeliveryStatusDelivered {
		// Delivered and completed imply each other.
		fields["status"] = string(enums.RequestStatusCompleted)
		if request.DeliveryDate == nil {
			fields["deliveryDate"] = now.Format(time.RFC3339Nano)
		}
		firstCompletion = request.Status != enums.RequestStatusCompleted
	}

	if err := s.repo.Update(ctx, input.RequestID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
	}

	if firstCompletion {
		ctx := s.logg.WithRequestID(ctx, input.RequestID)
		if _, err := s.rewards.IncrementAction(ctx, request.OwnerID, gamification.IncrementInput{
			Kind:  enums.ActionDonate,
			Count: 1,
		}); err != nil {
			s.logg.Error(ctx, "requests.delivery donation reward failed", err)
		}
		s.notify(ctx, request.RequesterID, "Item delivered",
			"Your requested item was delivered. Happy building!",
			string(enums.NotificationSeveritySuccess), input.RequestID)
	}
	return s.load(ctx, input.RequestID)
}

// Delete removes a request that ended without producing a debit.
func (s *service) Delete(ctx context.Context, actorID, requestID string) error {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if request.RequesterID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can delete a request")
	}
	if !request.Deletable() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only rejected or cancelled requests can be deleted")
	}
	if err := s.repo.Delete(ctx, requestID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete request")
	}
	return nil
}

func (s *service) notify(ctx context.Context, userID, title, body, severity, requestID string) {
	err := s.notifier.Notify(ctx, userID, notifications.NotifyInput{
		Title:     title,
		Body:      body,
		Severity:  severity,
		RelatedID: requestID,
	})
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID), "requests.notify failed", err)
	}
}
