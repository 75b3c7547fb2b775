package usecase

import (
	"context"
	"errors"
	"slices"
	"time"

	"healthsync-api/config"
	"healthsync-api/internal/converter"
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/domain/repository"
	"healthsync-api/internal/service"
	"healthsync-api/pkg/timeslot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound         = errors.New("appointment not found")
	ErrInvalidSlot                 = errors.New("selected slot is not available for this doctor on that date")
	ErrDoctorSlotTaken             = errors.New("this slot is already booked")
	ErrAppointmentOverlap          = errors.New("you already have an appointment close to this time")
	ErrAppointmentCompleted        = errors.New("appointment is already completed")
	ErrAppointmentAlreadyCancelled = errors.New("appointment is already cancelled")
	ErrAppointmentChanged          = errors.New("appointment was changed by another request, please retry")
	ErrInvalidDate                 = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidDoctorID             = errors.New("invalid doctor id")
	ErrInvalidAppointmentStatus    = errors.New("invalid appointment status")
)

const appointmentEntity = "appointment"

type AppointmentUsecase interface {
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailableSlotsResponse, error)
	BookAppointment(ctx context.Context, patientID uuid.UUID, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	RescheduleAppointment(ctx context.Context, patientID, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, patientID, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	GetMyAppointments(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error)
	GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
	GetMyQueuePosition(ctx context.Context, patientID uuid.UUID, appointmentID *uuid.UUID) (*dto.QueuePositionResponse, error)
	CompleteAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	txManager        repository.TxManager
	appointmentRepo  repository.AppointmentRepository
	availabilityRepo repository.AvailabilityRepository
	sequencer        service.QueueSequencer
	notifier         service.QueueNotifier
	locker           *service.QueueLocker
	auditService     service.AuditService
	queueConfig      config.QueueConfig
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	txManager repository.TxManager,
	appointmentRepo repository.AppointmentRepository,
	availabilityRepo repository.AvailabilityRepository,
	sequencer service.QueueSequencer,
	notifier service.QueueNotifier,
	locker *service.QueueLocker,
	auditService service.AuditService,
	queueConfig config.QueueConfig,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:               db,
		log:              log,
		txManager:        txManager,
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		sequencer:        sequencer,
		notifier:         notifier,
		locker:           locker,
		auditService:     auditService,
		queueConfig:      queueConfig,
	}
}

// slotsFor concatenates the slots of every active window on the weekday of
// day, in window start order. Overlapping windows may repeat a slot.
func (u *appointmentUsecase) slotsFor(ctx context.Context, doctorID uuid.UUID, day entity.Weekday) ([]string, error) {
	windows, err := u.availabilityRepo.FindActiveByDoctorAndDay(ctx, u.db, doctorID, day)
	if err != nil {
		u.log.Warnf("Failed to find availability for doctor %s on %s: %+v", doctorID, day, err)
		return nil, err
	}

	slots := make([]string, 0)
	for _, w := range windows {
		slots = append(slots, timeslot.Generate(w.StartTime, w.EndTime, w.SlotDuration)...)
	}
	return slots, nil
}

func (u *appointmentUsecase) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailableSlotsResponse, error) {
	if doctorID == uuid.Nil {
		return nil, ErrInvalidDoctorID
	}
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	weekday := entity.WeekdayOf(day)
	slots, err := u.slotsFor(ctx, doctorID, weekday)
	if err != nil {
		return nil, err
	}

	return &dto.AvailableSlotsResponse{
		DoctorID: doctorID,
		Date:     day.Format(entity.DateLayout),
		Day:      string(weekday),
		Slots:    slots,
	}, nil
}

// validateSlot checks slotTime against the doctor's generated slots for day.
func (u *appointmentUsecase) validateSlot(ctx context.Context, doctorID uuid.UUID, day time.Time, slotTime string) (timeslot.Range, error) {
	slots, err := u.slotsFor(ctx, doctorID, entity.WeekdayOf(day))
	if err != nil {
		return timeslot.Range{}, err
	}
	if !slices.Contains(slots, slotTime) {
		return timeslot.Range{}, ErrInvalidSlot
	}

	r, err := timeslot.ParseRange(slotTime)
	if err != nil {
		return timeslot.Range{}, ErrInvalidSlot
	}
	return r, nil
}

// BookAppointment books a slot and places the patient at the back of the
// doctor's queue for that day.
//
// Flow:
// 1. Validate the slot against the doctor's availability
// 2. Lock patient then doctor-day queue
// 3. Reject a slot already held by a non-cancelled appointment
// 4. Reject an overlap (with buffer) with the patient's other appointments that day
// 5. Take the next queue number from the sequencer, seeded with the DB max
// 6. Persist PENDING / WAITING / UNPAID
func (u *appointmentUsecase) BookAppointment(ctx context.Context, patientID uuid.UUID, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, ErrInvalidDoctorID
	}
	day, err := entity.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}

	// Step 1
	requested, err := u.validateSlot(ctx, doctorID, day, req.SlotTime)
	if err != nil {
		return nil, err
	}

	queueDay := day.Format(entity.DateLayout)

	// Step 2
	unlock := u.locker.Lock(service.PatientKey(patientID), service.QueueKey(doctorID, queueDay))
	defer unlock()

	// Step 3
	taken, err := u.appointmentRepo.FindActiveByDoctorSlot(ctx, u.db, doctorID, queueDay, req.SlotTime)
	if err != nil {
		u.log.Warnf("Failed to check doctor slot: %+v", err)
		return nil, err
	}
	if taken != nil {
		return nil, ErrDoctorSlotTaken
	}

	// Step 4
	existing, err := u.appointmentRepo.FindActiveByPatientAndDate(ctx, u.db, patientID, queueDay)
	if err != nil {
		u.log.Warnf("Failed to find patient appointments: %+v", err)
		return nil, err
	}
	for _, other := range existing {
		booked, err := timeslot.ParseRange(other.SlotTime)
		if err != nil {
			u.log.Warnf("Skipping appointment %s with malformed slot %q", other.ID, other.SlotTime)
			continue
		}
		if timeslot.Overlaps(requested, booked, u.queueConfig.BufferMinutes) {
			return nil, ErrAppointmentOverlap
		}
	}

	// Step 5
	dbMax, err := u.appointmentRepo.MaxQueueNumber(ctx, u.db, doctorID, queueDay)
	if err != nil {
		u.log.Warnf("Failed to find max queue number: %+v", err)
		return nil, err
	}
	queueNumber, err := u.sequencer.NextQueueNumber(ctx, doctorID, day, dbMax)
	if err != nil {
		u.log.Warnf("Failed to assign queue number: %+v", err)
		return nil, err
	}

	// Step 6
	appointment := &entity.Appointment{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: day,
		SlotTime:        req.SlotTime,
		Status:          entity.AppointmentStatusPending,
		PaymentStatus:   entity.PaymentStatusUnpaid,
		QueueDate:       entity.CalendarDay(day),
		QueueNumber:     queueNumber,
		QueueStatus:     entity.QueueStatusWaiting,
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Create(ctx, tx, appointment); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, &patientID, entity.AuditActionAppointmentBook, appointmentEntity, appointment.ID.String(), appointment)
	})
	if err != nil {
		if isDuplicateKeyError(err, "doctor_slot") {
			return nil, ErrDoctorSlotTaken
		}
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment booked: id=%s, doctor=%s, date=%s, queue=%d", appointment.ID, doctorID, queueDay, queueNumber)
	return converter.AppointmentToResponse(appointment), nil
}

// RescheduleAppointment moves the appointment to another valid slot. Queue
// number and queue status are kept, and conflict checks are not repeated.
func (u *appointmentUsecase) RescheduleAppointment(ctx context.Context, patientID, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil || appointment.PatientID != patientID || appointment.IsCancelled() {
		return nil, ErrAppointmentNotFound
	}

	day, err := entity.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if _, err := u.validateSlot(ctx, appointment.DoctorID, day, req.SlotTime); err != nil {
		return nil, err
	}

	lockedDay := appointment.QueueDay()
	unlock := u.locker.Lock(rescheduleLockKeys(patientID, appointment.DoctorID, lockedDay, day.Format(entity.DateLayout))...)
	defer unlock()

	// Reload under the lock; completion or another reschedule may have run meanwhile.
	appointment, err = u.appointmentRepo.FindByID(ctx, u.db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil || appointment.PatientID != patientID || appointment.IsCancelled() {
		return nil, ErrAppointmentNotFound
	}
	if appointment.QueueDay() != lockedDay {
		return nil, ErrAppointmentChanged
	}

	before := *appointment
	appointment.AppointmentDate = day
	appointment.SlotTime = req.SlotTime
	appointment.QueueDate = entity.CalendarDay(day)

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Update(ctx, tx, appointment); err != nil {
			return err
		}
		return u.auditService.LogUpdate(ctx, tx, &patientID, entity.AuditActionAppointmentResched, appointmentEntity, appointment.ID.String(),
			slotSnapshot(&before), slotSnapshot(appointment))
	})
	if err != nil {
		if isDuplicateKeyError(err, "doctor_slot") {
			return nil, ErrDoctorSlotTaken
		}
		u.log.Warnf("Failed to reschedule appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	return converter.AppointmentToResponse(appointment), nil
}

// rescheduleLockKeys puts the patient key first, then the doctor-day keys
// in sorted order so two reschedules between the same days cannot deadlock.
func rescheduleLockKeys(patientID, doctorID uuid.UUID, fromDay, toDay string) []string {
	if fromDay == toDay {
		return []string{service.PatientKey(patientID), service.QueueKey(doctorID, fromDay)}
	}
	if toDay < fromDay {
		fromDay, toDay = toDay, fromDay
	}
	return []string{service.PatientKey(patientID), service.QueueKey(doctorID, fromDay), service.QueueKey(doctorID, toDay)}
}

func slotSnapshot(a *entity.Appointment) map[string]interface{} {
	return map[string]interface{}{
		"appointment_date": a.AppointmentDate.Format(entity.DateLayout),
		"slot_time":        a.SlotTime,
		"queue_date":       a.QueueDay(),
		"queue_number":     a.QueueNumber,
	}
}

// CancelAppointment cancels the patient's appointment. The queue number is
// not released.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, patientID, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil || appointment.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}
	if appointment.IsCompleted() {
		return nil, ErrAppointmentCompleted
	}
	if appointment.IsCancelled() {
		return nil, ErrAppointmentAlreadyCancelled
	}

	oldStatus := appointment.Status
	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		rows, err := u.appointmentRepo.Cancel(ctx, tx, appointmentID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAppointmentAlreadyCancelled
		}
		return u.auditService.LogUpdate(ctx, tx, &patientID, entity.AuditActionAppointmentCancel, appointmentEntity, appointmentID.String(),
			map[string]interface{}{"status": oldStatus},
			map[string]interface{}{"status": entity.AppointmentStatusCancelled})
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentAlreadyCancelled) {
			return nil, ErrAppointmentAlreadyCancelled
		}
		u.log.Warnf("Failed to cancel appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	appointment.Status = entity.AppointmentStatusCancelled
	u.log.Infof("Appointment cancelled: id=%s, queue=%d", appointment.ID, appointment.QueueNumber)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetMyAppointments(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindByPatient(ctx, u.db, patientID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", patientID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	if filter != nil {
		if filter.Date != "" {
			if _, err := entity.ParseDate(filter.Date); err != nil {
				return nil, ErrInvalidDate
			}
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return nil, ErrInvalidAppointmentStatus
		}
	}

	appointments, err := u.appointmentRepo.FindByDoctor(ctx, u.db, doctorID, filter)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// GetMyQueuePosition reports where the patient stands in the doctor's queue.
// Without an appointment id the patient's earliest open appointment is used.
// Cancelled appointments are not counted ahead or in the total.
func (u *appointmentUsecase) GetMyQueuePosition(ctx context.Context, patientID uuid.UUID, appointmentID *uuid.UUID) (*dto.QueuePositionResponse, error) {
	var appointment *entity.Appointment
	var err error

	if appointmentID != nil {
		appointment, err = u.appointmentRepo.FindByID(ctx, u.db, *appointmentID)
		if err != nil {
			u.log.Warnf("Failed to find appointment %s: %+v", *appointmentID, err)
			return nil, err
		}
		if appointment != nil && (appointment.PatientID != patientID || appointment.IsCancelled()) {
			appointment = nil
		}
	} else {
		appointment, err = u.appointmentRepo.FindEarliestActiveByPatient(ctx, u.db, patientID)
		if err != nil {
			u.log.Warnf("Failed to find open appointment for patient %s: %+v", patientID, err)
			return nil, err
		}
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	queueDay := appointment.QueueDay()
	ahead, err := u.appointmentRepo.CountAhead(ctx, u.db, appointment.DoctorID, queueDay, appointment.QueueNumber)
	if err != nil {
		u.log.Warnf("Failed to count queue ahead: %+v", err)
		return nil, err
	}
	total, err := u.appointmentRepo.CountInQueue(ctx, u.db, appointment.DoctorID, queueDay)
	if err != nil {
		u.log.Warnf("Failed to count queue: %+v", err)
		return nil, err
	}

	return &dto.QueuePositionResponse{
		AppointmentID: appointment.ID,
		DoctorID:      appointment.DoctorID,
		QueueDate:     queueDay,
		QueueNumber:   appointment.QueueNumber,
		Position:      ahead + 1,
		AheadOfYou:    ahead,
		TotalInQueue:  total,
		QueueStatus:   string(appointment.QueueStatus),
	}, nil
}

// findOpenForDoctor loads an appointment owned by doctorID that is neither
// completed nor cancelled.
func (u *appointmentUsecase) findOpenForDoctor(ctx context.Context, doctorID, appointmentID uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil || appointment.DoctorID != doctorID || appointment.IsCompleted() || appointment.IsCancelled() {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

// CompleteAppointment finishes a consultation and advances the queue.
//
// Flow:
// 1. Load the doctor's open appointment and lock the doctor-day queue
// 2. Bootstrap number 1 to IN_PROGRESS when nobody is in progress
// 3. Mark COMPLETED and persist
// 4. Promote the successor from WAITING to IN_PROGRESS
// 5. Publish queueUpdated (best effort)
//
// The successor is the non-cancelled appointment numbered n+1; when that
// number was cancelled the queue stalls unless SkipCancelled is set.
func (u *appointmentUsecase) CompleteAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	// Step 1
	appointment, err := u.findOpenForDoctor(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}

	queueDay := appointment.QueueDay()
	unlock := u.locker.Lock(service.QueueKey(doctorID, queueDay))
	defer unlock()

	// Reload under the lock; a concurrent completion may have won.
	appointment, err = u.findOpenForDoctor(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}

	// Step 2
	inProgress, err := u.appointmentRepo.FindInProgress(ctx, u.db, doctorID, queueDay)
	if err != nil {
		u.log.Warnf("Failed to find in-progress appointment: %+v", err)
		return nil, err
	}
	if inProgress == nil && appointment.QueueNumber == 1 {
		appointment.StartInProgress()
	}

	// Step 3
	before := map[string]interface{}{"status": appointment.Status, "queue_status": appointment.QueueStatus}
	appointment.Complete()

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Update(ctx, tx, appointment); err != nil {
			return err
		}
		return u.auditService.LogUpdate(ctx, tx, &doctorID, entity.AuditActionAppointmentComplete, appointmentEntity, appointment.ID.String(),
			before, map[string]interface{}{"status": appointment.Status, "queue_status": appointment.QueueStatus})
	})
	if err != nil {
		u.log.Warnf("Failed to complete appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	// Step 4
	if err := u.advanceQueue(ctx, appointment); err != nil {
		return nil, err
	}

	// Step 5
	if err := u.notifier.Publish(ctx, service.NewQueueUpdatedEvent(doctorID, queueDay)); err != nil {
		u.log.Warnf("Failed to publish queue update for %s: %+v", service.QueueChannel(doctorID, queueDay), err)
	}

	u.log.Infof("Appointment completed: id=%s, doctor=%s, date=%s, queue=%d", appointment.ID, doctorID, queueDay, appointment.QueueNumber)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) advanceQueue(ctx context.Context, completed *entity.Appointment) error {
	queueDay := completed.QueueDay()

	// Numbers can be completed out of order; never start a second one.
	current, err := u.appointmentRepo.FindInProgress(ctx, u.db, completed.DoctorID, queueDay)
	if err != nil {
		u.log.Warnf("Failed to find in-progress appointment: %+v", err)
		return err
	}
	if current != nil {
		return nil
	}

	var next *entity.Appointment
	if u.queueConfig.SkipCancelled {
		next, err = u.appointmentRepo.FindNextActiveAfter(ctx, u.db, completed.DoctorID, queueDay, completed.QueueNumber)
	} else {
		next, err = u.appointmentRepo.FindActiveByQueueNumber(ctx, u.db, completed.DoctorID, queueDay, completed.QueueNumber+1)
	}
	if err != nil {
		u.log.Warnf("Failed to find next appointment in queue: %+v", err)
		return err
	}
	if next == nil || !next.StartInProgress() {
		return nil
	}

	if err := u.appointmentRepo.Update(ctx, u.db, next); err != nil {
		u.log.Errorf("Completed appointment %s but failed to advance queue to %s: %+v", completed.ID, next.ID, err)
		return err
	}
	return nil
}
