package violation

import "time"

// Status is the review lifecycle of a detected violation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDismissed Status = "dismissed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDismissed:
		return true
	}
	return false
}

// Violation is a single detected traffic-speed event with evidence metadata.
type Violation struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Location     string    `json:"location"`
	Speed        float64   `json:"speed"`
	SpeedLimit   float64   `json:"speedLimit"`
	LicensePlate string    `json:"licensePlate"`
	Vehicle      string    `json:"vehicle"`
	ImageURL     string    `json:"imageUrl"`
	Status       Status    `json:"status"`
	Confidence   float64   `json:"confidence"`
}

// Patch carries a shallow field merge for Update. Nil fields are left alone.
type Patch struct {
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Speed        *float64   `json:"speed,omitempty"`
	SpeedLimit   *float64   `json:"speedLimit,omitempty"`
	LicensePlate *string    `json:"licensePlate,omitempty"`
	Vehicle      *string    `json:"vehicle,omitempty"`
	ImageURL     *string    `json:"imageUrl,omitempty"`
	Status       *Status    `json:"status,omitempty"`
	Confidence   *float64   `json:"confidence,omitempty"`
}

func (p Patch) apply(v *Violation) {
	if p.Timestamp != nil {
		v.Timestamp = *p.Timestamp
	}
	if p.Location != nil {
		v.Location = *p.Location
	}
	if p.Speed != nil {
		v.Speed = *p.Speed
	}
	if p.SpeedLimit != nil {
		v.SpeedLimit = *p.SpeedLimit
	}
	if p.LicensePlate != nil {
		v.LicensePlate = *p.LicensePlate
	}
	if p.Vehicle != nil {
		v.Vehicle = *p.Vehicle
	}
	if p.ImageURL != nil {
		v.ImageURL = *p.ImageURL
	}
	if p.Status != nil {
		// Deliberately permissive: a record may move out of a terminal
		// status (confirmed -> dismissed and back).
		v.Status = *p.Status
	}
	if p.Confidence != nil {
		v.Confidence = *p.Confidence
	}
}

// Stats aggregates the current list.
type Stats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Confirmed    int     `json:"confirmed"`
	Dismissed    int     `json:"dismissed"`
	AverageSpeed float64 `json:"averageSpeed"`
}

// Seed returns the demo records written on first run.
func Seed(now time.Time) []Violation {
	return []Violation{
		{
			ID:           1,
			Timestamp:    now,
			Location:     "5th Ave & Broadway",
			Speed:        67,
			SpeedLimit:   35,
			LicensePlate: "ABC-1234",
			Vehicle:      "BMW 3-Series",
			ImageURL:     "https://images.pexels.com/photos/170811/pexels-photo-170811.jpeg",
			Status:       StatusPending,
			Confidence:   0.96,
		},
		{
			ID:           2,
			Timestamp:    now.Add(-1 * time.Hour),
			Location:     "Main St & 2nd Ave",
			Speed:        85,
			SpeedLimit:   45,
			LicensePlate: "XYZ-9876",
			Vehicle:      "Mercedes C-Class",
			ImageURL:     "https://images.pexels.com/photos/116675/pexels-photo-116675.jpeg",
			Status:       StatusConfirmed,
			Confidence:   0.89,
		},
		{
			ID:           3,
			Timestamp:    now.Add(-2 * time.Hour),
			Location:     "Highway 101 Mile 42",
			Speed:        95,
			SpeedLimit:   65,
			LicensePlate: "DEF-5555",
			Vehicle:      "Audi A4",
			ImageURL:     "https://images.pexels.com/photos/544542/pexels-photo-544542.jpeg",
			Status:       StatusPending,
			Confidence:   0.92,
		},
	}
}
