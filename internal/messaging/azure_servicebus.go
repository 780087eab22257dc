package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/config"
)

// IntakeHandler processes one queued message body. Returning an error
// abandons the message for redelivery.
type IntakeHandler func(ctx context.Context, body []byte) error

// Client is the Service Bus integration: remote stations enqueue refill
// request payloads on the intake queue, and resolved requests are published
// to the events queue for the ERP side.
type Client interface {
	SendEvent(ctx context.Context, body interface{}) error
	ProcessIntake(ctx context.Context, handle IntakeHandler) error
	Close(ctx context.Context) error
}

// serviceBusClient implements Client on Azure Service Bus
type serviceBusClient struct {
	client      *azservicebus.Client
	sender      *azservicebus.Sender
	intakeQueue string
	enabled     bool
}

// NewClient creates a new Service Bus client. Without a connection string a
// disabled client is returned: sends are dropped and intake idles until the
// context ends.
func NewClient(cfg config.AzureConfig) (Client, error) {
	if cfg.ConnectionString == "" {
		return &serviceBusClient{enabled: false}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.EventsQueue, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusClient{
		client:      client,
		sender:      sender,
		intakeQueue: cfg.IntakeQueue,
		enabled:     true,
	}, nil
}

// SendEvent publishes a message to the events queue
func (s *serviceBusClient) SendEvent(ctx context.Context, body interface{}) error {
	if !s.enabled {
		return nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message body")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": "refill-service",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	return s.sender.SendMessage(ctx, msg, nil)
}

// ProcessIntake receives messages from the intake queue until ctx ends.
// Handled messages are completed; failed ones are abandoned for redelivery.
func (s *serviceBusClient) ProcessIntake(ctx context.Context, handle IntakeHandler) error {
	if !s.enabled {
		<-ctx.Done()
		return nil
	}

	receiver, err := s.client.NewReceiverForQueue(s.intakeQueue, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Service Bus receiver")
	}
	defer receiver.Close(context.Background())

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to receive messages")
		}

		for _, msg := range messages {
			if err := handle(ctx, msg.Body); err != nil {
				log.Warn().Err(err).Str("message_id", msg.MessageID).Msg("Abandoning intake message")
				if abandonErr := receiver.AbandonMessage(ctx, msg, nil); abandonErr != nil {
					log.Error().Err(abandonErr).Msg("Failed to abandon message")
				}
				continue
			}
			if err := receiver.CompleteMessage(ctx, msg, nil); err != nil {
				log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Failed to complete message")
			}
		}
	}
}

// Close closes the Service Bus client
func (s *serviceBusClient) Close(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	if s.sender != nil {
		if err := s.sender.Close(ctx); err != nil {
			return err
		}
	}

	if s.client != nil {
		return s.client.Close(ctx)
	}

	return nil
}
