package workflow

import "github.com/gatherly/contract-esign-portal/internal/models"

// ContractView is the contract as handed to callers: the stored aggregate
// with the workflow status recomputed from field state, so a stale stored
// enum can never be observed.
type ContractView struct {
	*models.Contract
	WorkflowStatus    models.WorkflowStatus `json:"workflow_status"`
	CompletionPercent int                   `json:"completion_percent"`
}

// View builds the caller-facing projection of a contract.
func View(c *models.Contract) ContractView {
	return ContractView{
		Contract:          c,
		WorkflowStatus:    DerivedStatus(c),
		CompletionPercent: CompletionPercent(c),
	}
}
