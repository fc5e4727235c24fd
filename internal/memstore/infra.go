package memstore

import (
	"context"
	"sync"
	"time"
)

// Lock is an in-process DistributedLock. TTLs are ignored: a key stays held
// until unlocked.
type Lock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLock() *Lock {
	return &Lock{held: map[string]bool{}}
}

func (l *Lock) Ping(_ context.Context) error { return nil }

func (l *Lock) Lock(lockKey string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[lockKey] {
		return false, nil
	}

	l.held[lockKey] = true
	return true, nil
}

func (l *Lock) Unlock(lockKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, lockKey)
	return nil
}

func (l *Lock) Close() error { return nil }

// Queue is an in-process Queue and LivePublisher. Published messages are
// delivered synchronously to registered consumers and kept for inspection.
type Queue struct {
	mu       sync.Mutex
	handlers map[string][]func(string)
	messages map[string][]string
}

func NewQueue() *Queue {
	return &Queue{
		handlers: map[string][]func(string){},
		messages: map[string][]string{},
	}
}

func (q *Queue) IsHealthy() bool { return true }

func (q *Queue) PublishMessage(queueName, body string) error {
	q.mu.Lock()
	q.messages[queueName] = append(q.messages[queueName], body)
	handlers := append([]func(string){}, q.handlers[queueName]...)
	q.mu.Unlock()

	for _, handler := range handlers {
		handler(body)
	}

	return nil
}

func (q *Queue) Publish(topic, payload string) error {
	return q.PublishMessage(topic, payload)
}

func (q *Queue) ConsumeMessages(_, queueName string, handler func(string)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[queueName] = append(q.handlers[queueName], handler)
	return nil
}

func (q *Queue) Messages(queueName string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]string{}, q.messages[queueName]...)
}

func (q *Queue) Close() error { return nil }

// Sender is a recording ChannelSender. Set EmailErr or SmsErr to simulate
// transport failures.
type Sender struct {
	mu       sync.Mutex
	EmailErr error
	SmsErr   error
	emails   []SentMessage
	smses    []SentMessage
}

type SentMessage struct {
	To      string
	Subject string
	Body    string
}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.EmailErr != nil {
		return s.EmailErr
	}

	s.emails = append(s.emails, SentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (s *Sender) SendSms(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SmsErr != nil {
		return s.SmsErr
	}

	s.smses = append(s.smses, SentMessage{To: to, Body: body})
	return nil
}

func (s *Sender) Emails() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SentMessage{}, s.emails...)
}

func (s *Sender) Smses() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SentMessage{}, s.smses...)
}
