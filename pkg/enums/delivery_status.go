package enums

import "fmt"

// DeliveryStatus tracks the physical movement of an approved request.
// The display-cased wire values are what mobile clients already store and
// render, so they are preserved verbatim.
type DeliveryStatus string

const (
	DeliveryStatusNone            DeliveryStatus = ""
	DeliveryStatusPendingItem     DeliveryStatus = "Pending Item"
	DeliveryStatusReadyForPickup  DeliveryStatus = "Ready for Pickup"
	DeliveryStatusSortingFacility DeliveryStatus = "At Sorting Facility"
	DeliveryStatusInTransit       DeliveryStatus = "In Transit"
	DeliveryStatusDelivered       DeliveryStatus = "Delivered"
	DeliveryStatusCancelled       DeliveryStatus = "Cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusNone,
	DeliveryStatusPendingItem,
	DeliveryStatusReadyForPickup,
	DeliveryStatusSortingFacility,
	DeliveryStatusInTransit,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// InMotion reports whether the item has physically left the donor. A request
// can only be cancelled before this point.
func (d DeliveryStatus) InMotion() bool {
	switch d {
	case DeliveryStatusNone, DeliveryStatusPendingItem:
		return false
	}
	return true
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
