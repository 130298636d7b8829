package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/api/responses"
	"github.com/ecoforge/ecoforge-backend/api/validators"
	"github.com/ecoforge/ecoforge-backend/internal/donations"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

type createDonationRequest struct {
	Category    string   `json:"category" validate:"required"`
	SubCategory string   `json:"subCategory"`
	Quantity    int      `json:"quantity" validate:"required,gt=0"`
	Unit        string   `json:"unit" validate:"required"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

// CreateDonation lists a new donation owned by the caller.
func CreateDonation(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		var body createDonationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donation, err := svc.Create(r.Context(), donations.CreateInput{
			OwnerID:     middleware.UserIDFromContext(r.Context()),
			Category:    body.Category,
			SubCategory: body.SubCategory,
			Quantity:    body.Quantity,
			Unit:        body.Unit,
			Description: body.Description,
			Images:      body.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, donation)
	}
}

// GetDonation fetches a single listing by id.
func GetDonation(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		donationID := strings.TrimSpace(chi.URLParam(r, "donationId"))
		if donationID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "donation id required"))
			return
		}

		donation, err := svc.Get(r.Context(), donationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, donation)
	}
}

type editDonationRequest struct {
	Category    *string  `json:"category"`
	SubCategory *string  `json:"subCategory"`
	Description *string  `json:"description"`
	Images      []string `json:"images"`
}

// EditDonation updates owner-editable listing fields.
func EditDonation(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		donationID := strings.TrimSpace(chi.URLParam(r, "donationId"))
		if donationID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "donation id required"))
			return
		}

		var body editDonationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donation, err := svc.Edit(r.Context(), donations.EditInput{
			ActorID:     middleware.UserIDFromContext(r.Context()),
			DonationID:  donationID,
			Category:    body.Category,
			SubCategory: body.SubCategory,
			Description: body.Description,
			Images:      body.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, donation)
	}
}

// DeleteDonation removes the caller's listing.
func DeleteDonation(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		donationID := strings.TrimSpace(chi.URLParam(r, "donationId"))
		if donationID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "donation id required"))
			return
		}

		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), donationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// DiscoverDonations lists available donations, hiding depleted stock and
// optionally the caller's own listings.
func DiscoverDonations(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		params := donations.DiscoverParams{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
		}
		if excludeMine := strings.TrimSpace(r.URL.Query().Get("excludeMine")); excludeMine == "true" {
			params.ExcludeOwner = middleware.UserIDFromContext(r.Context())
		}

		listings, err := svc.Discover(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listings)
	}
}

// ListMyDonations returns every listing the caller owns, depleted ones included.
func ListMyDonations(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		listings, err := svc.ListByOwner(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listings)
	}
}
