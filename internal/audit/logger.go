// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/chefzaid/travelmapster/internal/logging"
)

// Config holds configuration for the audit logger.
type Config struct {
	// RetentionDays is how long events are kept. 0 keeps them forever.
	RetentionDays int

	// CleanupInterval is how often Serve applies the retention policy.
	CleanupInterval time.Duration

	// BufferSize is the size of the async write buffer.
	BufferSize int

	// LogToStdout also writes events through the application logger.
	LogToStdout bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
		LogToStdout:     false,
	}
}

// Logger records audit events asynchronously:
//
//	Log() -> buffered chan -> writer goroutine -> Store
//
// A nil *Logger is valid and records nothing.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger creates a logger and starts its writer.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain remaining events
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		data, err := json.Marshal(event)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to marshal audit event")
		} else {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}

	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log records an event without blocking. When the buffer is full the
// event is dropped with a warning.
func (l *Logger) Log(event *Event) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-l.stopChan:
		return
	default:
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Close flushes buffered events and stops the writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Serve applies the retention policy every CleanupInterval until ctx is
// canceled. It implements suture.Service.
func (l *Logger) Serve(ctx context.Context) error {
	if l.config.RetentionDays <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	interval := l.config.CleanupInterval
	if interval <= 0 {
		interval = DefaultConfig().CleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.cleanup(ctx)
		}
	}
}

func (l *Logger) cleanup(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -l.config.RetentionDays)
	count, err := l.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
	} else if count > 0 {
		logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
	}
}

// String names the service in supervisor logs.
func (l *Logger) String() string { return "audit-retention" }

// Query retrieves events matching the filter, newest first.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if l == nil || l.store == nil {
		return []Event{}, nil
	}
	return l.store.Query(ctx, filter)
}

func generateEventID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

// SourceFromRequest extracts the client address and user agent. RealIP
// middleware has already rewritten RemoteAddr when it runs first.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IPAddress: ip, UserAgent: r.UserAgent()}
}

// LogRegister records a new account.
func (l *Logger) LogRegister(ctx context.Context, userID int64, username string, source Source) {
	l.Log(&Event{
		Type:        EventTypeRegister,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		ActorID:     userID,
		ActorName:   username,
		Source:      source,
		Action:      "register",
		Description: "Account created",
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogAuthSuccess records a successful login. method is "session" or
// "token".
func (l *Logger) LogAuthSuccess(ctx context.Context, userID int64, username string, source Source, method string) {
	l.Log(&Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		ActorID:     userID,
		ActorName:   username,
		Source:      source,
		Action:      "authenticate",
		Description: "User authenticated successfully",
		Metadata:    mustJSON(map[string]string{"method": method}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogAuthFailure records a rejected login. userID is 0 when the username
// is unknown.
func (l *Logger) LogAuthFailure(ctx context.Context, userID int64, username string, source Source, reason string) {
	l.Log(&Event{
		Type:        EventTypeAuthFailure,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		ActorID:     userID,
		ActorName:   username,
		Source:      source,
		Action:      "authenticate",
		Description: "Authentication failed: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogLogout records the end of a cookie session.
func (l *Logger) LogLogout(ctx context.Context, userID int64, username string, source Source) {
	l.Log(&Event{
		Type:        EventTypeLogout,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		ActorID:     userID,
		ActorName:   username,
		Source:      source,
		Action:      "logout",
		Description: "User logged out",
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogTokenIssued records a bearer token grant.
func (l *Logger) LogTokenIssued(ctx context.Context, userID int64, username string, source Source, expiresAt time.Time) {
	l.Log(&Event{
		Type:        EventTypeTokenIssued,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		ActorID:     userID,
		ActorName:   username,
		Source:      source,
		Action:      "issue_token",
		Description: "Bearer token issued",
		Metadata:    mustJSON(map[string]string{"expires_at": expiresAt.UTC().Format(time.RFC3339)}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// MarkersChanged records a marker mutation. It satisfies markers.Notifier.
func (l *Logger) MarkersChanged(userID int64, reason string, markerID int64) {
	eventType := EventType("marker." + reason)
	switch eventType {
	case EventTypeMarkerCreated, EventTypeMarkerDeleted, EventTypeMarkerReplaced:
	default:
		return
	}
	l.Log(&Event{
		Type:        eventType,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		ActorID:     userID,
		Action:      reason,
		Description: "Marker " + reason,
		TargetID:    strconv.FormatInt(markerID, 10),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
