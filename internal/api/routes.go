package api

const (
	HealthCheckRoute = "/healthz"
	InfoRoute        = "/info"
	MetricsRoute     = "/metrics"

	EventsRoute = "/events"

	AdminParent       = "/v1/admin/"
	ListAuditsRoute   = AdminParent + "audits"
	WorkerStatusRoute = AdminParent + "worker"
	WorkerPollRoute   = AdminParent + "worker/poll"
)
