// Package queue defines the email task payload exchanged over the
// message broker and the background consumer that processes it.
package queue

// Email task kinds. The core fires these and never awaits a result.
const (
	TaskActivationEmail = "activation_email"
	TaskInvitationEmail = "invitation_email"
)

// EmailTaskEvent is published when the backend needs an email sent:
// an activation code after registration or an invitation link after
// an admin invite. It carries everything the mailer needs so the
// consumer never queries the primary database.
type EmailTaskEvent struct {
	Task      string `json:"task"`
	Email     string `json:"email"`
	Code      string `json:"code,omitempty"`
	Token     string `json:"token,omitempty"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"created_at"`
}
