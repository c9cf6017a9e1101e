package enums

import "fmt"

// Attendance captures a guest's RSVP answer.
type Attendance string

const (
	AttendanceYes     Attendance = "attending"
	AttendanceNo      Attendance = "declined"
	AttendancePending Attendance = "pending"
)

var validAttendances = []Attendance{
	AttendanceYes,
	AttendanceNo,
	AttendancePending,
}

// String returns the literal string for the answer.
func (a Attendance) String() string {
	return string(a)
}

// IsValid reports whether the answer is known.
func (a Attendance) IsValid() bool {
	for _, candidate := range validAttendances {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttendance converts raw input into an Attendance.
func ParseAttendance(value string) (Attendance, error) {
	for _, candidate := range validAttendances {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attendance %q", value)
}
