package monitoring

import "time"

// Poll outcomes reported by RecordPoll.
const (
	PollOutcomeSatisfied = "satisfied"
	PollOutcomePending   = "pending"
	PollOutcomeNotFound  = "not_found"
	PollOutcomeError     = "error"
)

// SetServiceInfo sets the info-style gauge for a managed service.
// Old phase labels are automatically cleaned up via DeletePartialMatch.
func SetServiceInfo(service, region, phase string) {
	serviceInfo.DeletePartialMatch(map[string]string{
		"service": service,
		"region":  region,
	})
	serviceInfo.WithLabelValues(service, region, phase).Set(1)
}

// RecordOperation records a lifecycle operation's result and duration.
func RecordOperation(operation, role string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	operationTotal.WithLabelValues(operation, role, result).Inc()
	operationDuration.WithLabelValues(operation, role).Observe(duration.Seconds())
}

// RecordPoll counts a single reconciliation poll.
func RecordPoll(service, outcome string) {
	pollTotal.WithLabelValues(service, outcome).Inc()
}
