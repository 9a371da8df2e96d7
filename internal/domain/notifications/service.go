package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"ems/internal/domain/leave"
)

const (
	JobLeaveDecision = "leave_decision_email"
	JobPasswordReset = "password_reset_email"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Queue runs work off the request path.
type Queue interface {
	Enqueue(jobType string, run func(context.Context) error)
}

// Service composes outgoing email and hands delivery to the job queue.
type Service struct {
	Mailer  Mailer
	Queue   Queue
	From    string
	BaseURL string
	// ResetTTL is how long a reset link stays valid, as told to the user.
	ResetTTL time.Duration
}

func New(mailer Mailer, queue Queue, from, baseURL string, resetTTL time.Duration) *Service {
	if from == "" {
		from = "no-reply@example.com"
	}
	if resetTTL <= 0 {
		resetTTL = 2 * time.Hour
	}
	return &Service{Mailer: mailer, Queue: queue, From: from, BaseURL: strings.TrimRight(baseURL, "/"), ResetTTL: resetTTL}
}

// LeaveDecided tells the employee their request was approved or rejected.
func (s *Service) LeaveDecided(ctx context.Context, req leave.Request) {
	if req.EmployeeEmail == "" {
		return
	}
	subject := fmt.Sprintf("Your %s leave request was %s", req.LeaveType, req.Status)
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", req.EmployeeName)
	fmt.Fprintf(&b, "Your %s leave from %s to %s (%d day(s)) was %s.\n",
		req.LeaveType, req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), req.TotalDays, req.Status)
	if req.Remarks != "" {
		fmt.Fprintf(&b, "\nRemarks: %s\n", req.Remarks)
	}
	s.deliver(JobLeaveDecision, req.EmployeeEmail, subject, b.String())
}

// SendPasswordReset mails the reset link. The raw token only ever leaves in this email.
func (s *Service) SendPasswordReset(ctx context.Context, email, token string) {
	link := BuildResetLink(s.BaseURL, token)
	body := "A password reset was requested for your account.\n\n" +
		"Use this link within the next " + describeDuration(s.ResetTTL) + ":\n" + link + "\n\n" +
		"If you did not request this, you can ignore this email.\n"
	s.deliver(JobPasswordReset, email, "Reset your password", body)
}

// describeDuration renders whole hours or minutes in words and falls back to
// Go duration syntax otherwise.
func describeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func BuildResetLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func (s *Service) deliver(jobType, to, subject, body string) {
	if s.Mailer == nil {
		return
	}
	send := func(ctx context.Context) error {
		return s.Mailer.Send(ctx, s.From, to, subject, body)
	}
	if s.Queue == nil {
		if err := send(context.Background()); err != nil {
			slog.Warn("notification email send failed", "jobType", jobType, "err", err)
		}
		return
	}
	s.Queue.Enqueue(jobType, send)
}
