package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	pkgkafka "github.com/utafrali/addressbook/pkg/kafka"
)

// TopicMemberDeleted carries member deletions from the member service.
var TopicMemberDeleted = pkgkafka.Topic("member", "deleted")

// ConsumerGroup is the Kafka consumer group of the address service.
const ConsumerGroup = "address-service"

// MemberDeletedData is the payload of a member.deleted event.
type MemberDeletedData struct {
	ID int64 `json:"id"`
}

// AddressRemover deletes every address of a member.
type AddressRemover interface {
	DeleteAllForMember(ctx context.Context, memberID int64) (int, error)
}

// MemberConsumer removes the addresses of deleted members.
type MemberConsumer struct {
	addresses AddressRemover
	logger    *slog.Logger
}

// NewMemberConsumer creates a handler for member events.
func NewMemberConsumer(addresses AddressRemover, logger *slog.Logger) *MemberConsumer {
	return &MemberConsumer{addresses: addresses, logger: logger}
}

// Handle dispatches a member event by type. Unknown types are ignored.
func (c *MemberConsumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicMemberDeleted:
		return c.handleMemberDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *MemberConsumer) handleMemberDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data MemberDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal member.deleted data: %w", err)
	}
	if data.ID == 0 {
		id, err := strconv.ParseInt(event.AggregateID, 10, 64)
		if err != nil {
			return fmt.Errorf("member.deleted event %s has no member id", event.EventID)
		}
		data.ID = id
	}

	n, err := c.addresses.DeleteAllForMember(ctx, data.ID)
	if err != nil {
		return fmt.Errorf("delete addresses of member %d: %w", data.ID, err)
	}

	c.logger.InfoContext(ctx, "removed addresses of deleted member",
		slog.Int64("member_id", data.ID),
		slog.Int("count", n),
	)
	return nil
}
