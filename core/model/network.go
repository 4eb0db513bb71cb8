package model

import "fmt"

// Link is a directed edge between two nodes. Nodes only exist as link
// endpoints. Fare is used on the demand side, Cost on the service side.
type Link struct {
	ID          int     `json:"id" yaml:"id"`
	Origin      int     `json:"o" yaml:"o"`
	Destination int     `json:"d" yaml:"d"`
	Fare        float64 `json:"fare,omitempty" yaml:"fare,omitempty"`
	Cost        float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// Leads reports whether next can directly follow l.
func (l Link) Leads(next Link) bool { return l.Destination == next.Origin }

// SelfLoop reports whether the link starts and ends on the same node.
func (l Link) SelfLoop() bool { return l.Origin == l.Destination }

// Demand is one rider request together with its choice-model weights.
//
// Origin and Destination are demand-side link ids. ServiceOrigin and
// ServiceDestination are the service-side links where the rider is picked up
// and dropped off.
type Demand struct {
	ID                 int     `json:"id" yaml:"id"`
	Origin             int     `json:"o" yaml:"o"`
	Destination        int     `json:"d" yaml:"d"`
	ServiceOrigin      int     `json:"service_o" yaml:"service_o"`
	ServiceDestination int     `json:"service_d" yaml:"service_d"`
	BookingTime        int     `json:"tb" yaml:"tb"`
	Deadline           int     `json:"te" yaml:"te"`
	RouteExponent      float64 `json:"e" yaml:"e"`
	BetaTime           float64 `json:"beta_time" yaml:"beta_time"`
	BetaFare           float64 `json:"beta_fare" yaml:"beta_fare"`
	BetaTimeOfDay      float64 `json:"beta_t" yaml:"beta_t"`
	BetaExperience     float64 `json:"beta_exp" yaml:"beta_exp"`
}

// Validate checks the booking window. The bid step tb-1 must exist.
func (d Demand) Validate() error {
	if d.BookingTime < 1 {
		return &MalformedInputError{Kind: "demand", ID: d.ID, Reason: fmt.Sprintf("booking time %d must be at least 1", d.BookingTime)}
	}
	if d.Deadline < d.BookingTime {
		return &MalformedInputError{Kind: "demand", ID: d.ID, Reason: fmt.Sprintf("deadline %d before booking time %d", d.Deadline, d.BookingTime)}
	}
	if d.RouteExponent < 0 {
		return &MalformedInputError{Kind: "demand", ID: d.ID, Reason: "negative route exponent"}
	}
	return nil
}

// LegacyServiceLink maps a demand-side link id onto the service-side id used
// by legacy link tables: 23 becomes 2030.
func LegacyServiceLink(id int) int {
	return (id/10)*1000 + (id%10)*10
}
