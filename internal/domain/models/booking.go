package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type BookingType string

const (
	BookingTypeSeat    BookingType = "seat_booking"
	BookingTypeCharter BookingType = "charter"
)

func (t BookingType) Valid() bool {
	return t == BookingTypeSeat || t == BookingTypeCharter
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingConfirmed BookingStatus = "Confirmed"
	BookingBoarding  BookingStatus = "Boarding"
	BookingInTransit BookingStatus = "InTransit"
	BookingCompleted BookingStatus = "Completed"
	BookingCancelled BookingStatus = "Cancelled"
	BookingQuoted    BookingStatus = "Quoted"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingQuoted:    {BookingPending, BookingCancelled},
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingBoarding, BookingCancelled},
	BookingBoarding:  {BookingInTransit},
	BookingInTransit: {BookingCompleted},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking is a seat booking or a charter request.
type Booking struct {
	ID               int64           `json:"id"`
	BookingType      BookingType     `json:"bookingType"`
	UserID           string          `json:"userId,omitempty"`
	HolderID         string          `json:"-"`
	ScheduledTripID  int64           `json:"scheduledTripId,omitempty"`
	PassengerName    string          `json:"passengerName"`
	PassengerPhone   string          `json:"passengerPhone"`
	PassengerEmail   string          `json:"passengerEmail"`
	Seats            []int           `json:"seats"`
	Price            int64           `json:"price"`
	Status           BookingStatus   `json:"status"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	PaymentError     string          `json:"paymentError,omitempty"`
	DriverID         string          `json:"driverId,omitempty"`
	VehicleID        string          `json:"vehicleId,omitempty"`
	FormData         json.RawMessage `json:"formData,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	ConfirmedAt      *time.Time      `json:"confirmedAt,omitempty"`
}

// OwnedBy reports whether the session identified by userID/holderID created it.
func (b Booking) OwnedBy(userID, holderID string) bool {
	if userID != "" && b.UserID == userID {
		return true
	}
	return holderID != "" && b.HolderID == holderID
}

// BookingForm is the tagged union of booking form payloads.
type BookingForm interface {
	Type() BookingType
	Validate() error
}

type SeatBookingForm struct {
	BookingType     BookingType `json:"bookingType"`
	ScheduledTripID int64       `json:"scheduledTripId"`
	Seats           []int       `json:"seats"`
	PassengerName   string      `json:"passengerName"`
	PassengerPhone  string      `json:"passengerPhone"`
	PassengerEmail  string      `json:"passengerEmail"`
	Pickup          string      `json:"pickup,omitempty"`
	Notes           string      `json:"notes,omitempty"`
}

func (f SeatBookingForm) Type() BookingType { return BookingTypeSeat }

func (f SeatBookingForm) Validate() error {
	if f.ScheduledTripID <= 0 {
		return fmt.Errorf("scheduledTripId is required")
	}
	if len(f.Seats) == 0 {
		return fmt.Errorf("at least one seat is required")
	}
	seen := map[int]bool{}
	for _, s := range f.Seats {
		if s <= 0 {
			return fmt.Errorf("seat %d is invalid", s)
		}
		if seen[s] {
			return fmt.Errorf("seat %d is duplicated", s)
		}
		seen[s] = true
	}
	return validateContact(f.PassengerName, f.PassengerPhone)
}

type CharterBookingForm struct {
	BookingType    BookingType `json:"bookingType"`
	PassengerName  string      `json:"passengerName"`
	PassengerPhone string      `json:"passengerPhone"`
	PassengerEmail string      `json:"passengerEmail"`
	Pickup         string      `json:"pickup"`
	Destination    string      `json:"destination"`
	StartDate      string      `json:"startDate"`
	EndDate        string      `json:"endDate"`
	Passengers     int         `json:"passengers"`
	VehicleID      string      `json:"vehicleId,omitempty"`
}

func (f CharterBookingForm) Type() BookingType { return BookingTypeCharter }

func (f CharterBookingForm) Validate() error {
	if strings.TrimSpace(f.Pickup) == "" || strings.TrimSpace(f.Destination) == "" {
		return fmt.Errorf("pickup and destination are required")
	}
	if _, err := f.Days(); err != nil {
		return err
	}
	if f.Passengers <= 0 {
		return fmt.Errorf("passengers must be positive")
	}
	return validateContact(f.PassengerName, f.PassengerPhone)
}

// Days is the inclusive number of charter days.
func (f CharterBookingForm) Days() (int, error) {
	start, err := time.Parse("2006-01-02", strings.TrimSpace(f.StartDate))
	if err != nil {
		return 0, fmt.Errorf("startDate must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", strings.TrimSpace(f.EndDate))
	if err != nil {
		return 0, fmt.Errorf("endDate must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return 0, fmt.Errorf("endDate is before startDate")
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

func validateContact(name, phone string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("passengerName is required")
	}
	if strings.TrimSpace(phone) == "" {
		return fmt.Errorf("passengerPhone is required")
	}
	return nil
}

// DecodeBookingForm picks the concrete form by its bookingType discriminator.
// It does not validate; partial drafts decode fine.
func DecodeBookingForm(raw []byte) (BookingForm, error) {
	var head struct {
		BookingType BookingType `json:"bookingType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	return DecodeBookingFormAs(head.BookingType, raw)
}

// DecodeBookingFormAs decodes raw as the form for t. A discriminator inside
// raw, when present, must agree with t.
func DecodeBookingFormAs(t BookingType, raw []byte) (BookingForm, error) {
	var head struct {
		BookingType BookingType `json:"bookingType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if head.BookingType != "" && head.BookingType != t {
		return nil, fmt.Errorf("bookingType %q does not match %q", head.BookingType, t)
	}
	switch t {
	case BookingTypeSeat:
		var f SeatBookingForm
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		f.BookingType = t
		return f, nil
	case BookingTypeCharter:
		var f CharterBookingForm
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		f.BookingType = t
		return f, nil
	default:
		return nil, fmt.Errorf("unknown bookingType %q", t)
	}
}
