package models

// Requests for the control HTTP endpoints. Defined in domain for consistency and reuse.

type PhaseRequest struct {
	Phase string `query:"phase" json:"phase" validate:"required,oneof=CALM BUILD_STRESS CIRCUIT_BREAK DELEVERAGE STABILIZE ARES_GATES REENTRY"`
}

type ScenarioRequest struct {
	Scenario string `query:"scenario" json:"scenario" validate:"required"`
}

// ControlAck is the success acknowledgement for control operations.
type ControlAck struct {
	Status   string `json:"status"`
	Applied  bool   `json:"applied"`
	Scenario string `json:"scenario,omitempty"`
	Phase    string `json:"phase,omitempty"`
}
