package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/voxstream/decode-hub/internal/events"
)

// NATSService publishes decode transcripts for downstream consumers
type NATSService struct {
	conn          *nats.Conn
	url           string
	subjectPrefix string
	maxReconnects int
	reconnectWait time.Duration
}

// DefaultSubjectPrefix is used when no prefix is configured
const DefaultSubjectPrefix = "decode.transcripts"

// NewNATSService creates a new NATS service instance
func NewNATSService(url, subjectPrefix string, maxReconnects int, reconnectWait time.Duration) (*NATSService, error) {
	if url == "" {
		return nil, fmt.Errorf("NATS url is required")
	}
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}

	return &NATSService{
		url:           url,
		subjectPrefix: subjectPrefix,
		maxReconnects: maxReconnects,
		reconnectWait: reconnectWait,
	}, nil
}

// Connect establishes connection to NATS server
func (ns *NATSService) Connect() error {
	log.Printf("🔌 Connecting to NATS at %s", ns.url)

	// Connection options with retry logic
	opts := []nats.Option{
		nats.Name("decode-hub"),
		nats.ReconnectWait(ns.reconnectWait),
		nats.MaxReconnects(ns.maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️  NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	log.Printf("✅ Connected to NATS server at %s", conn.ConnectedUrl())
	return nil
}

// TranscriptSubject returns the subject a transcript of the given kind is
// published on
func (ns *NATSService) TranscriptSubject(kind string) string {
	if kind == "" {
		kind = "unknown"
	}
	return fmt.Sprintf("%s.%s", ns.subjectPrefix, kind)
}

// PublishTranscript publishes a resolved utterance event
func (ns *NATSService) PublishTranscript(ctx context.Context, event *events.TranscriptEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish cancelled: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript event: %w", err)
	}

	subject := ns.TranscriptSubject(event.Kind)
	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Printf("📤 Published transcript to NATS - Kind: %s, UUID: %s",
		event.Kind, event.UUID)
	return nil
}

// SubscribeToTranscripts subscribes to transcript events of the given kind.
// The wildcard ">" subscribes to every kind.
func (ns *NATSService) SubscribeToTranscripts(kind string, handler func(*events.TranscriptEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	subject := fmt.Sprintf("%s.%s", ns.subjectPrefix, kind)
	return ns.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event events.TranscriptEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("❌ Error unmarshaling transcript event: %v", err)
			return
		}

		log.Printf("📥 Received transcript from NATS - Kind: %s, UUID: %s",
			event.Kind, event.UUID)
		handler(&event)
	})
}

// Close closes the NATS connection
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
		log.Println("🔌 NATS connection closed")
	}
}

// IsConnected returns true if connected to NATS
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// GetStats returns connection statistics
func (ns *NATSService) GetStats() nats.Statistics {
	if ns.conn != nil {
		return ns.conn.Stats()
	}
	return nats.Statistics{}
}
