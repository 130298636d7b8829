package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/api/responses"
	"github.com/ecoforge/ecoforge-backend/api/validators"
	"github.com/ecoforge/ecoforge-backend/internal/requests"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

type submitRequestRequest struct {
	DonationID string `json:"donationId" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	Urgency    string `json:"urgency" validate:"omitempty,oneof=low medium high"`
	ProjectID  string `json:"projectId"`
	MaterialID string `json:"materialId"`
}

// SubmitRequest opens a pending request against someone else's donation.
func SubmitRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		var body submitRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Submit(r.Context(), requests.SubmitInput{
			RequesterID: middleware.UserIDFromContext(r.Context()),
			DonationID:  body.DonationID,
			Title:       body.Title,
			Quantity:    body.Quantity,
			Urgency:     body.Urgency,
			ProjectID:   body.ProjectID,
			MaterialID:  body.MaterialID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// GetRequest fetches a single request by id.
func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		requestID := strings.TrimSpace(chi.URLParam(r, "requestId"))
		if requestID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request id required"))
			return
		}

		request, err := svc.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ListRequests returns requests the caller submitted, or requests against the
// caller's donations when role=owner.
func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		params := requests.ListParams{RequesterID: userID}
		if strings.TrimSpace(r.URL.Query().Get("role")) == "owner" {
			params = requests.ListParams{OwnerID: userID}
		}
		if donationID := strings.TrimSpace(r.URL.Query().Get("donationId")); donationID != "" {
			params.DonationID = donationID
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type editRequestRequest struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gt=0"`
	Urgency  *string `json:"urgency" validate:"omitempty,oneof=low medium high"`
}

// EditRequest changes a pending request's quantity or urgency.
func EditRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		requestID := strings.TrimSpace(chi.URLParam(r, "requestId"))
		if requestID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request id required"))
			return
		}

		var body editRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Edit(r.Context(), requests.EditInput{
			ActorID:   middleware.UserIDFromContext(r.Context()),
			RequestID: requestID,
			Quantity:  body.Quantity,
			Urgency:   body.Urgency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ApproveRequest debits the donation and moves the request to approved.
func ApproveRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return requestTransition(logg, nil)
	}
	return requestTransition(logg, svc.Approve)
}

// RejectRequest declines a pending request without touching stock.
func RejectRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return requestTransition(logg, nil)
	}
	return requestTransition(logg, svc.Reject)
}

// CancelRequest cancels a request still in motion, restoring stock when the
// request had been approved.
func CancelRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return requestTransition(logg, nil)
	}
	return requestTransition(logg, svc.Cancel)
}

func requestTransition(logg *logger.Logger, transition func(ctx context.Context, actorID, requestID string) (*models.Request, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if transition == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		requestID := strings.TrimSpace(chi.URLParam(r, "requestId"))
		if requestID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request id required"))
			return
		}

		request, err := transition(r.Context(), middleware.UserIDFromContext(r.Context()), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

type deliveryRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateDelivery advances the delivery chain on an approved request. Admins
// may act on any request; otherwise only the donation owner can.
func UpdateDelivery(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		requestID := strings.TrimSpace(chi.URLParam(r, "requestId"))
		if requestID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request id required"))
			return
		}

		var body deliveryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseDeliveryStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status"))
			return
		}

		request, err := svc.UpdateDelivery(r.Context(), requests.DeliveryInput{
			ActorID:   middleware.UserIDFromContext(r.Context()),
			RequestID: requestID,
			Status:    status,
			AsAdmin:   middleware.RoleFromContext(r.Context()) == string(enums.MemberRoleAdmin),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// DeleteRequest removes a terminal request from the requester's history.
func DeleteRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		requestID := strings.TrimSpace(chi.URLParam(r, "requestId"))
		if requestID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request id required"))
			return
		}

		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
