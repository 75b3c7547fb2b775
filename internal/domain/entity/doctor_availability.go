package entity

import (
	"time"

	"github.com/google/uuid"
)

// Weekday is the English weekday name stored on availability windows.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var weekdayOrder = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5, Sunday: 6,
}

func (d Weekday) Valid() bool {
	_, ok := weekdayOrder[d]
	return ok
}

// Index orders weekdays Monday first.
func (d Weekday) Index() int {
	return weekdayOrder[d]
}

// WeekdayOf returns the weekday of the calendar day t.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday().String())
}

const DefaultSlotDuration = 30

// DoctorAvailability is a recurring weekly working window for a doctor
type DoctorAvailability struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID     uuid.UUID `gorm:"type:uuid;not null;index:idx_availability_doctor_day" json:"doctor_id"`
	DayOfWeek    Weekday   `gorm:"type:varchar(10);not null;index:idx_availability_doctor_day" json:"day_of_week"`
	StartTime    string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime      string    `gorm:"type:varchar(5);not null" json:"end_time"`
	SlotDuration int       `gorm:"not null;default:30" json:"slot_duration"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (DoctorAvailability) TableName() string {
	return "doctor_availabilities"
}
