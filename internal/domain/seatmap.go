package domain

import (
	"fmt"
	"strings"
)

type UnavailableSeatsError struct {
	SeatIDs []string
}

func (e *UnavailableSeatsError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.SeatIDs, ","))
}

// Seat returns the seat with the given number.
func (s *Show) Seat(number string) (Seat, bool) {
	for _, seat := range s.Seats {
		if seat.Number == number {
			return seat, true
		}
	}

	return Seat{}, false
}

// CheckAvailability reports whether every requested seat exists in the show's
// seat map and is free. Missing and booked seats are collected in request
// order into an *UnavailableSeatsError. It reads only the snapshot it is given.
func (s *Show) CheckAvailability(seatIDs []string) error {
	index := make(map[string]bool, len(s.Seats))
	for _, seat := range s.Seats {
		index[seat.Number] = seat.IsBooked
	}

	var unavailable []string
	for _, id := range seatIDs {
		booked, ok := index[id]
		if !ok || booked {
			unavailable = append(unavailable, id)
		}
	}

	if len(unavailable) > 0 {
		return &UnavailableSeatsError{SeatIDs: unavailable}
	}

	return nil
}

// TotalCents is the price of the given number of seats.
func (s *Show) TotalCents(seatCount int) int64 {
	return s.PriceCents * int64(seatCount)
}

// AvailableCount returns the number of seats not yet booked.
func (s *Show) AvailableCount() int {
	n := 0
	for _, seat := range s.Seats {
		if !seat.IsBooked {
			n++
		}
	}

	return n
}

// DuplicateSeats returns each seat id that occurs more than once, in order of
// its second occurrence.
func DuplicateSeats(seatIDs []string) []string {
	seen := make(map[string]int, len(seatIDs))

	var dups []string
	for _, id := range seatIDs {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}

	return dups
}
