// README: Notification senders: FCM topic push, Kafka lifecycle events, logging and fan-out.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/segmentio/kafka-go"
)

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// UserTopic is the FCM topic each app installation subscribes to for its user.
func UserTopic(userID string) string {
	return "user_" + userID
}

type FCMSender struct {
	client *messaging.Client
	logger *slog.Logger
}

func NewFCMSender(client *messaging.Client, logger *slog.Logger) *FCMSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMSender{client: client, logger: logger}
}

func (s *FCMSender) Send(ctx context.Context, msg Message) error {
	data := map[string]string{
		"type":           msg.Event,
		"reservation_id": string(msg.ReservationID),
	}
	for k, v := range msg.Data {
		data[k] = v
	}
	messageID, err := s.client.Send(ctx, &messaging.Message{
		Topic: UserTopic(string(msg.UserID)),
		Data:  data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
	if err != nil {
		return fmt.Errorf("sending FCM to user %s: %w", msg.UserID, err)
	}
	s.logger.Debug("fcm sent", "reservation_id", msg.ReservationID, "message_id", messageID)
	return nil
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaSender struct {
	writer messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaSender(w messageWriter) *KafkaSender {
	return &KafkaSender{writer: w}
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ReservationID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Event)},
		},
	})
}

type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification", "event", msg.Event, "user_id", msg.UserID, "reservation_id", msg.ReservationID)
	return nil
}

// Fanout delivers to every sender and joins their errors.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
