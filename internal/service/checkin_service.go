package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"swiftattend/internal/cache"
	"swiftattend/internal/db"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
)

const (
	logBufferSize    = 100
	logBatchSize     = 10
	logFlushInterval = time.Second
	maxLoggedCode    = 255
)

// CheckinInput is one scan or typed code at the door. Method is optional and
// inferred from the matching lookup when empty.
type CheckinInput struct {
	EventID uuid.UUID
	Code    string
	Method  model.CheckinMethod
	StaffID uuid.UUID
}

// CheckinResult is a successful check-in with the attendee it belongs to.
type CheckinResult struct {
	Attendance   *model.Attendance   `json:"attendance"`
	Registration *model.Registration `json:"registration"`
	AttendeeName string              `json:"attendee_name"`
}

// CheckinService checks attendees in and keeps an audit trail of every attempt.
type CheckinService interface {
	CheckIn(ctx context.Context, in CheckinInput) (*CheckinResult, error)
	RecentAttempts(ctx context.Context, eventID uuid.UUID, limit int) ([]model.CheckinLog, error)
	Close()
}

type checkinService struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	attendanceRepo   repository.AttendanceRepository
	checkinLogRepo   repository.CheckinLogRepository
	cache            *cache.Client

	registrationLocks keyedMutex

	logChannel chan model.CheckinLog
	// guards sends on logChannel against Close
	logMu     sync.RWMutex
	logClosed bool
	logDone   chan struct{}
}

// NewCheckinService creates a check-in service and starts its log writer.
// Call Close to flush pending log entries.
func NewCheckinService(
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	attendanceRepo repository.AttendanceRepository,
	checkinLogRepo repository.CheckinLogRepository,
	cache *cache.Client,
) CheckinService {
	s := &checkinService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		attendanceRepo:   attendanceRepo,
		checkinLogRepo:   checkinLogRepo,
		cache:            cache,
		logChannel:       make(chan model.CheckinLog, logBufferSize),
		logDone:          make(chan struct{}),
	}

	go s.logWorker()

	return s
}

// CheckIn matches the code to a registration of in.EventID and records
// attendance once. Errors: ErrInvalidCode when nothing matches, ErrWrongEvent
// when the registration is for another event, and *AlreadyCheckedInError
// when attendance already exists.
func (s *checkinService) CheckIn(ctx context.Context, in CheckinInput) (*CheckinResult, error) {
	result, err := s.checkIn(ctx, in)
	s.record(in, result, err)
	return result, err
}

func (s *checkinService) checkIn(ctx context.Context, in CheckinInput) (*CheckinResult, error) {
	if in.Method != "" && !in.Method.Valid() {
		return nil, apperrors.NewValidationError("method must be qr_scan or backup_code")
	}
	if _, err := findEvent(ctx, s.eventRepo, in.EventID); err != nil {
		return nil, err
	}

	registration, matched, err := lookupRegistration(ctx, s.registrationRepo, in.Code)
	if err != nil {
		return nil, err
	}
	if registration.EventID != in.EventID {
		return nil, apperrors.ErrWrongEvent
	}

	unlock := s.registrationLocks.lock(registration.ID)
	defer unlock()

	existing, err := s.attendanceRepo.FindByRegistrationID(ctx, registration.ID)
	if err != nil && !db.IsNotFound(err) {
		return nil, fmt.Errorf("check attendance: %w", err)
	}
	if existing != nil {
		return nil, alreadyCheckedIn(registration, existing)
	}

	method := in.Method
	if method == "" {
		method = matched
	}
	attendance := &model.Attendance{
		RegistrationID: registration.ID,
		EventID:        registration.EventID,
		Method:         method,
		CheckedInBy:    in.StaffID,
	}
	if err := s.attendanceRepo.Create(ctx, attendance); err != nil {
		if db.IsUniqueViolation(err) {
			// another instance won the race
			winner, readErr := s.attendanceRepo.FindByRegistrationID(ctx, registration.ID)
			if readErr != nil {
				log.Printf("checkin: re-read attendance for registration %s: %v", registration.ID, readErr)
			}
			return nil, alreadyCheckedIn(registration, winner)
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	invalidateStats(ctx, s.cache, registration.EventID)
	registration.Attendance = attendance

	return &CheckinResult{
		Attendance:   attendance,
		Registration: registration,
		AttendeeName: attendeeName(registration),
	}, nil
}

func alreadyCheckedIn(registration *model.Registration, existing *model.Attendance) error {
	err := &apperrors.AlreadyCheckedInError{AttendeeName: attendeeName(registration)}
	if existing != nil {
		err.CheckedInAt = existing.CheckedInAt
	}
	return err
}

func attendeeName(registration *model.Registration) string {
	if registration.User != nil {
		return registration.User.Name
	}
	return ""
}

// RecentAttempts lists the latest logged attempts for an event.
func (s *checkinService) RecentAttempts(ctx context.Context, eventID uuid.UUID, limit int) ([]model.CheckinLog, error) {
	logs, err := s.checkinLogRepo.ListByEvent(ctx, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("list check-in attempts: %w", err)
	}
	return logs, nil
}

// record turns the outcome of an attempt into a log entry.
func (s *checkinService) record(in CheckinInput, result *CheckinResult, err error) {
	entry := model.CheckinLog{
		EventID: in.EventID,
		StaffID: in.StaffID,
		Code:    in.Code,
	}
	if len(entry.Code) > maxLoggedCode {
		entry.Code = entry.Code[:maxLoggedCode]
	}

	switch {
	case err == nil:
		entry.Outcome = model.CheckinOutcomeCheckedIn
		entry.Message = result.AttendeeName
	case errors.Is(err, apperrors.ErrInvalidCode):
		entry.Outcome = model.CheckinOutcomeInvalidCode
	case errors.Is(err, apperrors.ErrWrongEvent):
		entry.Outcome = model.CheckinOutcomeWrongEvent
	case errors.Is(err, apperrors.ErrAlreadyCheckedIn):
		entry.Outcome = model.CheckinOutcomeAlreadyCheckedIn
		entry.Message = err.Error()
	default:
		entry.Outcome = model.CheckinOutcomeError
		entry.Message = err.Error()
	}

	if errors.Is(err, apperrors.ErrEventNotFound) {
		// nothing to attach the entry to
		log.Printf("checkin: event %s not found (code %q)", in.EventID, entry.Code)
		return
	}

	log.Printf("checkin: event=%s staff=%s outcome=%s", in.EventID, in.StaffID, entry.Outcome)
	s.enqueueLog(entry)
}

// enqueueLog hands an entry to the writer without blocking the request.
func (s *checkinService) enqueueLog(entry model.CheckinLog) {
	s.logMu.RLock()
	if !s.logClosed {
		select {
		case s.logChannel <- entry:
			s.logMu.RUnlock()
			return
		default:
		}
	}
	s.logMu.RUnlock()

	// Channel full or writer stopped, write synchronously as fallback
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.checkinLogRepo.Create(ctx, &entry); err != nil {
		log.Printf("checkin: failed to write attempt log: %v", err)
	}
}

// logWorker writes log entries in batches until the channel is closed.
func (s *checkinService) logWorker() {
	defer close(s.logDone)

	batch := make([]model.CheckinLog, 0, logBatchSize)
	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.checkinLogRepo.CreateBatch(ctx, batch); err != nil {
			log.Printf("checkin: failed to write %d attempt logs: %v", len(batch), err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-s.logChannel:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= logBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close stops the log writer after flushing what is queued. It is safe to
// call more than once; later attempts are logged synchronously.
func (s *checkinService) Close() {
	s.logMu.Lock()
	if s.logClosed {
		s.logMu.Unlock()
		<-s.logDone
		return
	}
	s.logClosed = true
	close(s.logChannel)
	s.logMu.Unlock()
	<-s.logDone
}
