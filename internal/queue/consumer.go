package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-slot-booking/internal/mailer"
)

// Notifier consumes the three booking queues and turns messages into
// emails to the booking holder. Without a configured SMTP account it
// appends a human-readable line to logs/notifications.log instead, so
// local setups still show what would have been sent.
type Notifier struct {
	url     string
	mail    *mailer.Mailer // nil means log-only delivery
	rdb     *redis.Client  // nil disables the per-recipient throttle
	baseURL string
	log     *logrus.Logger
}

// Per-recipient throttle: at most throttleLimit emails per address per
// throttleWindow. Messages over the limit are dropped and acked; a
// runaway producer must not let us spam a mailbox.
const (
	throttleWindow = time.Minute
	throttleLimit  = 10
)

// NewNotifier builds a Notifier. baseURL is the public origin used to
// render management magic links, e.g. "https://booking.example.com".
func NewNotifier(url string, m *mailer.Mailer, rdb *redis.Client, baseURL string, log *logrus.Logger) *Notifier {
	return &Notifier{url: url, mail: m, rdb: rdb, baseURL: baseURL, log: log}
}

// Run consumes all three queues until the process exits. Each queue
// gets its own connection and reconnect loop so a poisoned consumer on
// one queue cannot stall the others.
func (n *Notifier) Run() {
	var wg sync.WaitGroup
	for _, name := range []string{QueueBookingConfirmed, QueueBookingCancelled, QueueReminderDue} {
		wg.Add(1)
		go func(queueName string) {
			defer wg.Done()
			n.consume(queueName)
		}(name)
	}
	wg.Wait()
}

func (n *Notifier) consume(queueName string) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(n.url)
		if err != nil {
			n.log.WithError(err).WithField("queue", queueName).
				Warnf("notifier: dial failed, retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := n.consumeLoop(conn, queueName); err != nil {
			n.log.WithError(err).WithField("queue", queueName).Warn("notifier: consume loop ended, reconnecting")
		}
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func (n *Notifier) consumeLoop(conn *amqp.Connection, queueName string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		n.log.WithError(err).Warn("notifier: set QoS failed")
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := n.handle(queueName, d.Body); err != nil {
			n.log.WithError(err).WithField("queue", queueName).Warn("notifier: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (n *Notifier) handle(queueName string, body []byte) error {
	switch queueName {
	case QueueBookingConfirmed:
		var msg BookingConfirmedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		subject := fmt.Sprintf("Booking confirmed: %s", msg.EventTitle)
		text := fmt.Sprintf(
			"Hi %s,\n\nYour booking for %q on %s at %s is confirmed (%d seat(s)).\nLocation: %s\n\nManage your booking:\n%s\n",
			msg.HolderName, msg.EventTitle, msg.SlotDate, msg.SlotTime, msg.SeatCount,
			msg.Location, n.manageLink(msg.Token))
		return n.deliver(msg.HolderEmail, subject, text)

	case QueueBookingCancelled:
		var msg BookingCancelledMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		subject := fmt.Sprintf("Booking cancelled: %s", msg.EventTitle)
		text := fmt.Sprintf(
			"Hi %s,\n\nYour booking for %q on %s at %s (%d seat(s)) was cancelled by %s.\n",
			msg.HolderName, msg.EventTitle, msg.SlotDate, msg.SlotTime, msg.SeatCount, msg.CancelledBy)
		return n.deliver(msg.HolderEmail, subject, text)

	case QueueReminderDue:
		var msg ReminderDueMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		subject := fmt.Sprintf("Reminder: %s on %s", msg.EventTitle, msg.SlotDate)
		text := fmt.Sprintf(
			"Hi %s,\n\nThis is your %s reminder for %q on %s at %s (%d seat(s)).\nLocation: %s\n\nManage your booking:\n%s\n",
			msg.HolderName, msg.ReminderType, msg.EventTitle, msg.SlotDate, msg.SlotTime,
			msg.SeatCount, msg.Location, n.manageLink(msg.Token))
		return n.deliver(msg.HolderEmail, subject, text)
	}
	return fmt.Errorf("unknown queue %q", queueName)
}

func (n *Notifier) manageLink(token string) string {
	return n.baseURL + "/v1/bookings/" + token
}

// deliver sends one email, applying the per-recipient throttle first.
// Throttled messages are dropped, not retried.
func (n *Notifier) deliver(to, subject, text string) error {
	if n.rdb != nil {
		key := "notify:throttle:" + to
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		cnt, err := n.rdb.Incr(ctx, key).Result()
		if err == nil && cnt == 1 {
			n.rdb.Expire(ctx, key, throttleWindow)
		}
		cancel()
		if err != nil {
			n.log.WithError(err).Warn("notifier: throttle check failed, sending anyway")
		} else if cnt > throttleLimit {
			n.log.WithField("to", to).Warn("notifier: recipient throttled, dropping message")
			return nil
		}
	}

	if n.mail == nil {
		return appendNotificationLog(to, subject, text)
	}
	return n.mail.Send(to, subject, text)
}

// appendNotificationLog writes the would-be email to
// logs/notifications.log, one block per message.
func appendNotificationLog(to, subject, text string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] to=%s | subject=%q\n%s\n", time.Now().UTC().Format(time.RFC3339), to, subject, text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
