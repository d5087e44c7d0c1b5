package queue

// SyncJob is the JSON payload put on the RabbitMQ queue when a user
// registers. The worker creates the matching CRM contact and sends the
// welcome email; neither step may block or fail the auth flow.
type SyncJob struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Surname string `json:"surname,omitempty"`
	Phone   string `json:"phone,omitempty"`
}
