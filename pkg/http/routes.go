package http

const (
	ReportJob      = "ReportJob"
	TriggerChange  = "TriggerChange"
	CancelChange   = "CancelChange"
	ForceTrigger   = "ForceTrigger"
	GetApplication = "GetApplication"
	ClaimJob       = "ClaimJob"
	Sweep          = "Sweep"
)

// Path variables naming the application and job in a route.
const (
	VarTenant      = "tenant"
	VarApplication = "application"
	VarInstance    = "instance"
	VarJob         = "job"
)
