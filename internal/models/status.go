package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle label carried by an enrollment.
type Status string

// Enrollment statuses.
const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusDropped   Status = "DROPPED"
)

// transitions lists the statuses reachable from each status. Completed and
// dropped enrollments are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusActive, StatusDropped},
	StatusActive:    {StatusCompleted, StatusDropped},
	StatusCompleted: nil,
	StatusDropped:   nil,
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusActive, StatusCompleted, StatusDropped}
}

// ParseStatus converts a case-insensitive label into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown enrollment status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is legal. Staying in
// the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// RequiresGrade reports whether an enrollment in this status is expected to carry a grade.
func (s Status) RequiresGrade() bool {
	return s == StatusCompleted
}

// UnmarshalText accepts any casing of a known status so request bodies and
// query strings decode the same way. An empty value stays empty.
func (s *Status) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) String() string {
	return string(s)
}
