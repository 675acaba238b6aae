// Package queue defines the welcome-email job exchanged over RabbitMQ, its
// publisher and the background consumer that delivers it.
package queue

import "time"

// DefaultWelcomeQueue is the queue name used when none is configured.
const DefaultWelcomeQueue = "email.welcome"

// WelcomeEmailJob is published after a successful registration.  It
// carries everything the mailer needs so the consumer never touches the
// users table.
type WelcomeEmailJob struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	LoginURL    string    `json:"login_url"`
	RequestedAt time.Time `json:"requested_at"`
}
