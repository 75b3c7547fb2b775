package entity

// AppointmentFilter is a domain-level filter for listing a doctor's appointments.
// Used by repository layer to avoid coupling with delivery DTOs.
type AppointmentFilter struct {
	Date   string            // Format: YYYY-MM-DD
	Status AppointmentStatus // Exact match when set
}
