package models

import (
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/enums"
)

// Request is a claim against a donation's remaining quantity, optionally tied
// to a project so approved quantity can credit a material requirement.
type Request struct {
	ID          string              `json:"id"`
	DonationID  string              `json:"donationId"`
	RequesterID string              `json:"requesterId"`
	OwnerID     string              `json:"ownerId"`
	Title       string              `json:"title"`
	Status      enums.RequestStatus `json:"status"`
	// DeliveryStatus mirrors Status at the edges: completed iff Delivered.
	DeliveryStatus enums.DeliveryStatus `json:"deliveryStatus,omitempty"`
	Quantity       int                  `json:"quantity"`
	Urgency        string               `json:"urgency,omitempty"`
	ProjectID      string               `json:"projectId,omitempty"`
	// MaterialID is informational only; reconciliation matches by title.
	MaterialID         string     `json:"materialId,omitempty"`
	MaterialBackfilled bool       `json:"materialBackfilled,omitempty"`
	ProcessingDate     *time.Time `json:"processingDate,omitempty"`
	PickupDate         *time.Time `json:"pickupDate,omitempty"`
	DeliveryDate       *time.Time `json:"deliveryDate,omitempty"`
	CancelledDate      *time.Time `json:"cancelledDate,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Deletable reports whether the request sits in a terminal state that never
// produced a donation debit.
func (r Request) Deletable() bool {
	return r.Status == enums.RequestStatusRejected || r.Status == enums.RequestStatusCancelled
}
