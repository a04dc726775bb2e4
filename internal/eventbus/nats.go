/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus ships playback events to NATS for off-device consumers.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_player/internal/events"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "muninn.events."

// Config contains NATS connection configuration.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns default NATS configuration.
func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Shipper forwards events from the in-process bus to NATS subjects.
// When no NATS URL is configured the shipper is inert; a broken
// connection is logged and publishing degrades to a no-op, never an
// error for the playback path.
type Shipper struct {
	conn   *nats.Conn
	nodeID string
	logger zerolog.Logger

	bus   *events.Bus
	stops []func()
}

type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// NewShipper connects to NATS and returns a shipper over the given bus.
// An empty URL yields a disabled shipper; a connection failure is returned
// to the caller so startup can log and continue without remote shipping.
func NewShipper(cfg Config, bus *events.Bus, logger zerolog.Logger) (*Shipper, error) {
	s := &Shipper{
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "eventbus").Logger(),
		bus:    bus,
	}

	if cfg.URL == "" {
		s.logger.Debug().Msg("no NATS URL configured, remote event shipping disabled")
		return s, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	s.conn = conn
	s.logger.Info().Str("url", cfg.URL).Msg("remote event shipping enabled")
	return s, nil
}

// Forward subscribes to the given event types and relays them to NATS
// until Close is called.
func (s *Shipper) Forward(types ...events.EventType) {
	if s.conn == nil {
		return
	}

	for _, eventType := range types {
		sub := s.bus.Subscribe(eventType)
		et := eventType
		done := make(chan struct{})

		go func() {
			for {
				select {
				case payload, ok := <-sub:
					if !ok {
						return
					}
					s.publish(et, payload)
				case <-done:
					return
				}
			}
		}()

		s.stops = append(s.stops, func() {
			close(done)
			s.bus.Unsubscribe(et, sub)
		})
	}
}

func (s *Shipper) publish(eventType events.EventType, payload events.Payload) {
	data, err := json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    s.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(eventType)).Msg("marshal event")
		return
	}

	if err := s.conn.Publish(SubjectPrefix+string(eventType), data); err != nil {
		s.logger.Warn().Err(err).Str("event", string(eventType)).Msg("publish event")
	}
}

// Close stops forwarding and drains the connection.
func (s *Shipper) Close() error {
	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil

	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}
