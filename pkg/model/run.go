package model

import (
	"fmt"
	"time"
)

// Stage names one step of the pipeline. Stages run in declaration order.
type Stage string

const (
	StageScript    Stage = "script"
	StageBlueprint Stage = "blueprint"
	StageNarration Stage = "narration"
	StageRender    Stage = "render"
	StageAssemble  Stage = "assemble"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageScript, StageBlueprint, StageNarration, StageRender, StageAssemble}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (valid: script, blueprint, narration, render, assemble)", s)
}

// Index returns the position of the stage in Stages, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunDone        RunStatus = "done"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// Run is one invocation of the pipeline for a topic.
type Run struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Style     string    `json:"style"`
	Dir       string    `json:"dir"`
	Stage     Stage     `json:"stage"` // Last stage started
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Output    string    `json:"output,omitempty"` // Final video or manifest dir
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
