package agent

// Progress statuses.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// ProgressUpdate represents a status update from an agent
type ProgressUpdate struct {
	AgentName   string
	Status      string
	Message     string
	Error       error
	TokenUsage  *TokenUsage
	TotalCost   float64
	TotalTokens int
}

const progressBuffer = 100

// sendProgress publishes an update without blocking; updates are dropped
// while nobody drains the channel and it is full.
func (t *Team) sendProgress(role Role, status, message string, err error) {
	name := string(role)
	select {
	case t.progressChan <- ProgressUpdate{
		AgentName:   name,
		Status:      status,
		Message:     message,
		Error:       err,
		TokenUsage:  t.tracker.GetAgentUsage(name),
		TotalCost:   t.tracker.GetTotalCost(),
		TotalTokens: t.tracker.GetTotalTokens(),
	}:
	default:
	}
}
