package meta

var (
	Name               = "stingray"
	Version            = "development"
	TelemetryNamespace = Name
)
