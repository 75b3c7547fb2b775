package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// QueueLocker serializes read-then-write sequences on a doctor's daily queue
// and on a patient's bookings within this process.
//
// Lock ordering (to prevent deadlocks):
// 1. Patient key FIRST
// 2. Then the doctor-day queue key
type QueueLocker struct {
	log *logrus.Logger

	locks sync.Map // map[string]*mutexWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewQueueLocker starts the background mutex cleanup goroutine.
// Call Stop() during graceful shutdown.
func NewQueueLocker(log *logrus.Logger) *QueueLocker {
	l := &QueueLocker{
		log:      log,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop(mutexCleanupInterval)

	return l
}

// Stop gracefully shuts down the cleanup goroutine.
// Safe to call multiple times.
func (l *QueueLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("QueueLocker stopped")
	}
}

// QueueKey identifies the queue of one doctor on one calendar day.
func QueueKey(doctorID uuid.UUID, queueDate string) string {
	return fmt.Sprintf("queue:%s:%s", doctorID, queueDate)
}

// PatientKey identifies all bookings of one patient.
func PatientKey(patientID uuid.UUID) string {
	return fmt.Sprintf("patient:%s", patientID)
}

// Lock acquires the mutexes for keys in the given order and returns a
// function releasing them in reverse order.
func (l *QueueLocker) Lock(keys ...string) (unlock func()) {
	held := make([]*mutexWithTimestamp, 0, len(keys))
	for _, key := range keys {
		held = append(held, l.lockKey(key))
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].lastUsed.Store(time.Now().Unix())
			held[i].mu.Unlock()
		}
	}
}

// lockKey locks the live mutex for key. Cleanup only deletes an entry while
// holding its mutex, so an entry still mapped after Lock stays mapped.
func (l *QueueLocker) lockKey(key string) *mutexWithTimestamp {
	for {
		v, _ := l.locks.LoadOrStore(key, &mutexWithTimestamp{})
		mt := v.(*mutexWithTimestamp)
		mt.mu.Lock()

		if current, ok := l.locks.Load(key); ok && current == v {
			mt.lastUsed.Store(time.Now().Unix())
			return mt
		}

		// Removed by cleanup while we waited; retry with the live entry.
		mt.mu.Unlock()
	}
}

// cleanupLoop runs in background to clean stale mutexes
func (l *QueueLocker) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			l.log.Debug("Mutex cleanup goroutine stopping")
			return
		case <-ticker.C:
			l.cleanupStale(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanupStale removes mutexes unused since cutoff. TryLock skips any
// mutex currently held; lastUsed is checked while holding the lock.
func (l *QueueLocker) cleanupStale(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	l.locks.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				l.locks.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale mutexes", cleaned)
	}
	return cleaned
}
