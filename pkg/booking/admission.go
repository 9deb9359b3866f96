package booking

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var timeSlotPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ParseDate parses a YYYY-MM-DD calendar date in location.
func ParseDate(raw string, location *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPreferredDate, raw)
	}
	return parsed, nil
}

// SlotTime combines a YYYY-MM-DD date and an HH:MM slot into an instant in location.
func SlotTime(date string, slot string, location *time.Location) (time.Time, error) {
	day, err := ParseDate(date, location)
	if err != nil {
		return time.Time{}, err
	}
	trimmedSlot := strings.TrimSpace(slot)
	if !timeSlotPattern.MatchString(trimmedSlot) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, slot)
	}
	clock, err := time.Parse(slotLayout, trimmedSlot)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, slot)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, location), nil
}

// CheckBookingTime rejects a date before today and a slot that is not after now,
// both judged on the calendar of location.
func CheckBookingTime(date string, slot string, now time.Time, location *time.Location) error {
	day, err := ParseDate(date, location)
	if err != nil {
		return err
	}
	localNow := now.In(location)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	if day.Before(today) {
		return fmt.Errorf("%w: %s", ErrPastDate, date)
	}
	slotTime, err := SlotTime(date, slot, location)
	if err != nil {
		return err
	}
	if !slotTime.After(now) {
		return fmt.Errorf("%w: %s %s", ErrPastTimeSlot, date, slot)
	}
	return nil
}

// newAppointmentDraft validates request and returns an unsaved DRAFT appointment.
func newAppointmentDraft(customerID UserID, request AppointmentRequest, location *time.Location) (Appointment, error) {
	bikeID, err := NewBikeID(request.BikeID)
	if err != nil {
		return Appointment{}, err
	}
	garageID, err := NewGarageID(request.GarageID)
	if err != nil {
		return Appointment{}, err
	}
	if request.Odometer <= 0 {
		return Appointment{}, fmt.Errorf("%w: %d", ErrInvalidOdometer, request.Odometer)
	}
	preferredDate := strings.TrimSpace(request.PreferredDate)
	if _, err := ParseDate(preferredDate, location); err != nil {
		return Appointment{}, err
	}
	timeSlot := strings.TrimSpace(request.TimeSlot)
	if _, err := SlotTime(preferredDate, timeSlot, location); err != nil {
		return Appointment{}, err
	}
	serviceType := strings.TrimSpace(request.ServiceType)
	if serviceType == "" {
		serviceType = defaultServiceType
	}
	return Appointment{
		CustomerID:    customerID,
		BikeID:        bikeID,
		GarageID:      garageID,
		Odometer:      request.Odometer,
		ServiceType:   serviceType,
		PreferredDate: preferredDate,
		TimeSlot:      timeSlot,
		Notes:         strings.TrimSpace(request.Notes),
		Status:        StatusDraft,
	}, nil
}
