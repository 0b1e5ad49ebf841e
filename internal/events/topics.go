package events

// Topic constants for domain events emitted by the service.
const (
	TopicSessionStarted      = "order.edit.started"
	TopicSubmissionAccepted  = "order.edit.submitted"
	TopicSubmissionFailed    = "order.edit.failed"
	TopicSessionCancelled    = "order.edit.cancelled"
	TopicConfirmationCleared = "order.edit.confirmed"
)

// DefaultTopics returns the canonical list of topics that support webhook
// notifications.
func DefaultTopics() []string {
	return []string{
		TopicSessionStarted,
		TopicSubmissionAccepted,
		TopicSubmissionFailed,
		TopicSessionCancelled,
		TopicConfirmationCleared,
	}
}
