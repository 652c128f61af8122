package nodes

// Node names of the turn graph. They double as the run names seen by callbacks.
const (
	NodeRouter   = "Router"
	NodeFlow     = "FlowStep"
	NodeControl  = "Control"
	NodeClassify = "Classifier"
	NodeCompose  = "Composer"
)
