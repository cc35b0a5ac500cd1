package types

import "time"

// IntegrationStatus is the health of a sheet integration.
type IntegrationStatus string

// IntegrationStatus values
const (
	IntegrationActive IntegrationStatus = "ACTIVE"
	IntegrationPaused IntegrationStatus = "PAUSED"
	IntegrationError  IntegrationStatus = "ERROR"
)

// IntegrationConfig drives a spreadsheet import.
type IntegrationConfig struct {
	ID              string            `json:"id" yaml:"id"`
	SourceName      string            `json:"source_name" yaml:"source_name"`
	SheetURL        string            `json:"sheet_url" yaml:"sheet_url"`
	TargetPathway   Pathway           `json:"target_pathway" yaml:"target_pathway"`
	TargetStageID   string            `json:"target_stage_id" yaml:"target_stage_id"`
	AutoCreateTask  bool              `json:"auto_create_task" yaml:"auto_create_task"`
	TaskDescription string            `json:"task_description,omitempty" yaml:"task_description,omitempty"`
	AutoWelcome     bool              `json:"auto_welcome" yaml:"auto_welcome"`
	LastSync        *time.Time        `json:"last_sync,omitempty" yaml:"-"`
	Status          IntegrationStatus `json:"status" yaml:"status"`
	LastError       string            `json:"last_error,omitempty" yaml:"-"`
}
