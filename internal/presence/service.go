package presence

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/actionsum/presence/internal/config"
	"github.com/actionsum/presence/internal/database"
	"github.com/actionsum/presence/internal/export"
	"github.com/actionsum/presence/internal/idle"
	"github.com/actionsum/presence/internal/models"
	"github.com/actionsum/presence/pkg/pointer"

	"github.com/google/uuid"
)

// ErrNotRunning is returned for status changes delivered before Start
var ErrNotRunning = fmt.Errorf("presence service is not running")

type Service struct {
	config   *config.Config
	repo     *database.Repository
	detector pointer.Detector
	exporter *export.Exporter

	mu          sync.Mutex
	monitor     *idle.Monitor
	running     bool
	subscribers map[int]chan idle.Event
	nextSub     int

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewService(cfg *config.Config, repo *database.Repository, detector pointer.Detector) *Service {
	return &Service{
		config:      cfg,
		repo:        repo,
		detector:    detector,
		exporter:    export.New(cfg.Export.OutputPath),
		subscribers: make(map[int]chan idle.Event),
		stopChan:    make(chan struct{}),
	}
}

// Start runs the idle monitor and records its events until ctx is
// cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("presence service is already running")
	}
	interval := s.config.Idle.SampleInterval
	monitor := idle.NewMonitor(s.detector, interval)
	monitor.OnError = func(err error) { s.storeError("pointer", err) }
	s.monitor = monitor
	s.running = true
	s.mu.Unlock()

	log.Printf("Starting presence service with %v sample interval", interval)

	monitorCtx, cancel := context.WithCancel(ctx)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		monitor.Run(monitorCtx)
	}()

	defer func() {
		cancel()
		<-monitorDone
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("Presence service stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			log.Println("Presence service stopped")
			return nil

		case ev := <-monitor.Events():
			log.Printf("Idle confirmed at %v after %d ticks", ev.Position, ev.Ticks)
			s.recordIdle(ev)
			s.broadcast(ev)
		}
	}
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetUserStatus forwards a shell status change to the idle monitor:
// false starts pointer sampling, true cancels it
func (s *Service) SetUserStatus(active bool) error {
	s.mu.Lock()
	monitor, running := s.monitor, s.running
	s.mu.Unlock()

	if !running {
		return ErrNotRunning
	}

	log.Printf("User status changed: active=%v", active)
	monitor.OnIdleSignal(active)
	return nil
}

// Subscribe registers for idle-confirmed events. The returned function
// unregisters and closes the channel.
func (s *Service) Subscribe() (<-chan idle.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan idle.Event, 4)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *Service) broadcast(ev idle.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			log.Printf("Dropping idle event for slow subscriber %d", id)
		}
	}
}

// Export writes the flattened sessions and records the run. A write
// failure is logged and stored, and returned alongside the run record.
func (s *Service) Export(users []export.UserRecord) (*models.ExportRun, error) {
	rows, err := s.exporter.Export(users)

	run := &models.ExportRun{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Path:      s.exporter.Path(),
		Users:     len(users),
		RowCount:  rows,
		Success:   err == nil,
	}

	if err != nil {
		run.ErrorMsg = err.Error()
		log.Printf("Error writing export: %v", err)
		s.storeError("export", err)
	} else {
		log.Printf("Successfully created CSV %s (%d rows from %d users)", run.Path, rows, len(users))
	}

	if dbErr := s.repo.CreateExportRun(run); dbErr != nil {
		s.storeError("store", dbErr)
	}

	return run, err
}

// Reconfigure applies a reloaded configuration. The output path changes
// immediately; the sample interval applies to the next idle signal.
func (s *Service) Reconfigure(cfg *config.Config) {
	s.exporter.SetPath(cfg.Export.OutputPath)

	s.mu.Lock()
	s.config = cfg
	monitor, running := s.monitor, s.running
	s.mu.Unlock()

	if running {
		monitor.SetInterval(cfg.Idle.SampleInterval)
	}
}

// Config returns the configuration last applied by NewService or Reconfigure
func (s *Service) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// ExportPath returns the current export destination
func (s *Service) ExportPath() string {
	return s.exporter.Path()
}

// CurrentPosition reads the pointer once
func (s *Service) CurrentPosition() (pointer.Position, error) {
	pos, err := s.detector.Read()
	if err != nil {
		return pointer.Position{}, fmt.Errorf("failed to read pointer: %w", err)
	}
	return pos, nil
}

func (s *Service) recordIdle(ev idle.Event) {
	event := &models.IdleEvent{
		Timestamp:     ev.At,
		X:             ev.Position.X,
		Y:             ev.Position.Y,
		Ticks:         ev.Ticks,
		WaitSeconds:   int64(ev.Waited().Seconds()),
		DisplayServer: s.detector.GetDisplayServer(),
	}

	if err := s.repo.CreateIdleEvent(event); err != nil {
		s.storeError("store", err)
	}
}

func (s *Service) storeError(source string, err error) {
	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Source:    source,
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
	}
}
