package main

import (
	"reflect"
	"testing"
)

func TestTripAndSeatsDropsRepeatedSeats(t *testing.T) {
	tripID, seats, err := tripAndSeats([]string{"5", "1", "1", "3", "1"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tripID != 5 {
		t.Fatalf("trip id = %d", tripID)
	}
	if !reflect.DeepEqual(seats, []int{1, 3}) {
		t.Fatalf("seats = %v", seats)
	}
}

func TestTripAndSeatsRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{},
		{"x"},
		{"0"},
		{"5", "two"},
		{"5", "-1"},
	}
	for _, args := range cases {
		if _, _, err := tripAndSeats(args, 0); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
	if _, _, err := tripAndSeats([]string{"5"}, 1); err == nil {
		t.Fatalf("expected error when seats are required")
	}
}
