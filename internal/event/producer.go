package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/addressbook/internal/domain"
	pkgkafka "github.com/utafrali/addressbook/pkg/kafka"
	"github.com/utafrali/addressbook/pkg/logger"
)

// Kafka topics for address domain events.
var (
	TopicAddressSaved   = pkgkafka.Topic("address", "saved")
	TopicAddressDeleted = pkgkafka.Topic("address", "deleted")
)

// AggregateTypeAddress is the aggregate type of address events.
const AggregateTypeAddress = "address"

// SourceAddressService identifies events originating from this service.
const SourceAddressService = "address-service"

// Publisher is the part of pkg/kafka.Producer used to emit events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// AddressSavedData is the payload of an address.saved event.
type AddressSavedData struct {
	Address *domain.Address `json:"address"`
	Created bool            `json:"created"`
}

// AddressDeletedData is the payload of an address.deleted event.
type AddressDeletedData struct {
	ID       int64              `json:"id"`
	MemberID int64              `json:"member_id"`
	PTable   domain.ParentTable `json:"ptable"`
	StoreID  int                `json:"store_id"`
}

// Producer publishes address domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the address service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishAddressSaved publishes an address.saved event.
func (p *Producer) PublishAddressSaved(ctx context.Context, addr *domain.Address, created bool) error {
	id := strconv.FormatInt(addr.ID, 10)
	data := AddressSavedData{Address: addr, Created: created}

	if err := p.publish(ctx, TopicAddressSaved, id, addr.StoreID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published address.saved event",
		slog.Int64("address_id", addr.ID),
		slog.Int64("member_id", addr.PID),
		slog.Bool("created", created),
	)
	return nil
}

// PublishAddressDeleted publishes an address.deleted event.
func (p *Producer) PublishAddressDeleted(ctx context.Context, id, memberID int64, storeID int) error {
	data := AddressDeletedData{
		ID:       id,
		MemberID: memberID,
		PTable:   domain.ParentMember,
		StoreID:  storeID,
	}

	if err := p.publish(ctx, TopicAddressDeleted, strconv.FormatInt(id, 10), storeID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published address.deleted event",
		slog.Int64("address_id", id),
		slog.Int64("member_id", memberID),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, storeID int, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeAddress, SourceAddressService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithMetadata("store_id", strconv.Itoa(storeID))
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
