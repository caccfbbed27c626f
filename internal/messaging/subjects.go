package messaging

// Subject constants for the SOC message bus.
// Follow the pattern: {domain}.{resource}.{action}
const (
	// Alert lifecycle subjects
	SubjectAlertsCreated = "soc.alerts.created" // New alert stored
	SubjectAlertsUpdated = "soc.alerts.updated" // Alert fields or status changed

	// Case lifecycle subjects
	SubjectCasesCreated   = "soc.cases.created"   // New case opened
	SubjectCasesEscalated = "soc.cases.escalated" // Case escalated to a higher tier
	SubjectCasesResolved  = "soc.cases.resolved"  // Case resolved

	// Inbound subjects
	SubjectAlertsIngest = "soc.alerts.ingest" // Detections submitted by upstream pipelines

	// Playbook execution subjects
	SubjectExecutionsStarted  = "soc.executions.started"  // Execution transitioned to running
	SubjectExecutionsFinished = "soc.executions.finished" // Execution reached a terminal status
)

// Queue group names for load-balanced consumers. Workers in the same queue
// group share messages (each message processed once).
const (
	QueueSOCWorkers = "soc-workers" // Pool of downstream alert/case consumers
	QueueSOCIngest  = "soc-ingest"  // SOC core instances sharing inbound detections
)
