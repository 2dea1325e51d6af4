package metrics

/*
Labels and so on for metrics used in the controller.
*/

const (
	LabelMethod  = "method"
	LabelRoute   = "route"
	LabelSuccess = "success"

	// Labels for triggering metrics
	LabelJobType = "job_type"
	LabelTrigger = "trigger"
	LabelReason  = "reason"
)

// Namespace all controller metrics are registered under.
const Namespace = "deployment"
