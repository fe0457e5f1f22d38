package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmissionOutcome результат попытки отправки заказа.
type SubmissionOutcome string

const (
	SubmissionAccepted SubmissionOutcome = "accepted"
	SubmissionFailed   SubmissionOutcome = "failed"
)

// SubmissionRecord запись журнала отправок. Пишется на каждую попытку, дошедшую до сети.
type SubmissionRecord struct {
	ID             string
	IdempotencyKey string
	Customer       string
	Lines          []CartLine
	Total          decimal.Decimal
	Outcome        SubmissionOutcome
	Error          string
	CreatedAt      time.Time
}

// Event types публикуемые через outbox.
const (
	EventOrderSubmitted    = "order.submitted"
	EventOrderSubmitFailed = "order.submit_failed"
	AggregateSubmission    = "submission"
)
