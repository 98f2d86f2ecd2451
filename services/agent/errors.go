package agent

import "errors"

var (
	// ErrBudgetExhausted is reported when the decide/execute loop hits its
	// iteration cap before producing a final answer.
	ErrBudgetExhausted = errors.New("agent iteration budget exhausted")

	// ErrUnknownTool is reported when the model selects a tool name that is
	// not in the registry.
	ErrUnknownTool = errors.New("unknown tool")
)
