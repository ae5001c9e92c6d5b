// Package model defines the execution records of jobs and steps.
// Executions live in memory for the duration of one CLI invocation; they are
// reported through listeners and logged, never persisted.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// JobStatus represents the state of a job or step execution.
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusStopped   JobStatus = "STOPPED"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished checks if the JobStatus represents a finished state.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped:
		return true
	default:
		return false
	}
}

// ExitStatus represents the detailed status upon job/step completion.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// String returns the ExitStatus as a string.
func (s ExitStatus) String() string {
	return string(s)
}

// ExecutionContext is a key-value store for sharing state across job and step executions.
type ExecutionContext map[string]interface{}

// NewExecutionContext creates an empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put sets a value in the ExecutionContext with the specified key and value.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get retrieves the value for the specified key. Returns nil and false if the value does not exist.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	val, ok := ec[key]
	return val, ok
}

// GetString retrieves the value for the specified key as a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	val, ok := ec[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt64 retrieves the value for the specified key as an int64.
func (ec ExecutionContext) GetInt64(key string) (int64, bool) {
	val, ok := ec[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Copy creates a shallow copy of the ExecutionContext.
func (ec ExecutionContext) Copy() ExecutionContext {
	newEC := make(ExecutionContext, len(ec))
	for k, v := range ec {
		newEC[k] = v
	}
	return newEC
}

// JobParameters holds the parameters a job was launched with.
type JobParameters map[string]interface{}

// NewJobParameters creates an empty JobParameters.
func NewJobParameters() JobParameters {
	return make(JobParameters)
}

// Put sets a parameter.
func (jp JobParameters) Put(key string, value interface{}) {
	jp[key] = value
}

// GetString retrieves the parameter as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	v, ok := jp[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt retrieves the parameter as an int.
func (jp JobParameters) GetInt(key string) (int, bool) {
	v, ok := jp[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// String renders the parameters sorted by key.
func (jp JobParameters) String() string {
	keys := make([]string, 0, len(jp))
	for k := range jp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, jp[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FailureList holds the failure messages of an execution.
type FailureList []string

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// JobExecution is a structure representing a single execution instance of a job.
type JobExecution struct {
	ID               string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
	CurrentStepName  string
}

// NewJobExecution creates a new instance of JobExecution.
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	if params == nil {
		params = NewJobParameters()
	}
	return &JobExecution{
		ID:               NewID(),
		JobName:          jobName,
		Parameters:       params,
		StartTime:        time.Now(),
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make(FailureList, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

// Duration returns the elapsed time of the execution, up to now when still running.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime != nil {
		return je.EndTime.Sub(je.StartTime)
	}
	return time.Since(je.StartTime)
}

func isValidTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusStopped
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusStopped
	default:
		return false
	}
}

// TransitionTo safely transitions the state of JobExecution.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): Invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	return nil
}

// MarkAsStarted updates the JobExecution status to STARTED.
func (je *JobExecution) MarkAsStarted() {
	if err := je.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to STARTED: %v", je.ID, err)
		je.Status = BatchStatusStarted
	}
	je.StartTime = time.Now()
}

// MarkAsCompleted updates the JobExecution status to COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	if err := je.TransitionTo(BatchStatusCompleted); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to COMPLETED: %v", je.ID, err)
		je.Status = BatchStatusCompleted
	}
	je.ExitStatus = ExitStatusCompleted
	now := time.Now()
	je.EndTime = &now
}

// MarkAsFailed updates the JobExecution status to FAILED and adds error information.
func (je *JobExecution) MarkAsFailed(err error) {
	if tErr := je.TransitionTo(BatchStatusFailed); tErr != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to FAILED: %v", je.ID, tErr)
		je.Status = BatchStatusFailed
	}
	je.ExitStatus = ExitStatusFailed
	now := time.Now()
	je.EndTime = &now
	je.AddFailureException(err)
}

// MarkAsStopped updates the JobExecution status to STOPPED (context cancelled).
func (je *JobExecution) MarkAsStopped() {
	if err := je.TransitionTo(BatchStatusStopped); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to STOPPED: %v", je.ID, err)
		je.Status = BatchStatusStopped
	}
	je.ExitStatus = ExitStatusStopped
	now := time.Now()
	je.EndTime = &now
}

// AddFailureException adds error information to JobExecution. It avoids adding duplicate errors.
func (je *JobExecution) AddFailureException(err error) {
	je.Failures = appendFailure(je.Failures, err)
}

// AddStepExecution adds a StepExecution to JobExecution.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// StepExecution is a structure representing a single execution instance of a step.
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	ReadCount        int
	WriteCount       int
	FilterCount      int
	ExecutionContext ExecutionContext
}

// NewStepExecution creates a new instance of StepExecution and attaches it to jobExecution.
func NewStepExecution(id string, jobExecution *JobExecution, stepName string) *StepExecution {
	se := &StepExecution{
		ID:               id,
		StepName:         stepName,
		JobExecution:     jobExecution,
		StartTime:        time.Now(),
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make(FailureList, 0),
		ExecutionContext: NewExecutionContext(),
	}
	if jobExecution != nil {
		jobExecution.AddStepExecution(se)
	}
	return se
}

// Duration returns the elapsed time of the step, up to now when still running.
func (se *StepExecution) Duration() time.Duration {
	if se.EndTime != nil {
		return se.EndTime.Sub(se.StartTime)
	}
	return time.Since(se.StartTime)
}

// TransitionTo safely transitions the state of StepExecution.
func (se *StepExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): Invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	return nil
}

// MarkAsStarted updates the StepExecution status to STARTED.
func (se *StepExecution) MarkAsStarted() {
	if err := se.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to STARTED: %v", se.ID, err)
		se.Status = BatchStatusStarted
	}
	se.StartTime = time.Now()
}

// MarkAsCompleted updates the StepExecution status to COMPLETED.
func (se *StepExecution) MarkAsCompleted(exitStatus ExitStatus) {
	if err := se.TransitionTo(BatchStatusCompleted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to COMPLETED: %v", se.ID, err)
		se.Status = BatchStatusCompleted
	}
	if exitStatus == "" || exitStatus == ExitStatusUnknown {
		exitStatus = ExitStatusCompleted
	}
	se.ExitStatus = exitStatus
	now := time.Now()
	se.EndTime = &now
}

// MarkAsFailed updates the StepExecution status to FAILED and adds error information.
func (se *StepExecution) MarkAsFailed(err error) {
	if tErr := se.TransitionTo(BatchStatusFailed); tErr != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to FAILED: %v", se.ID, tErr)
		se.Status = BatchStatusFailed
	}
	se.ExitStatus = ExitStatusFailed
	now := time.Now()
	se.EndTime = &now
	se.AddFailureException(err)
}

// AddFailureException adds error information to StepExecution. It avoids adding duplicate errors.
func (se *StepExecution) AddFailureException(err error) {
	se.Failures = appendFailure(se.Failures, err)
}

func appendFailure(list FailureList, err error) FailureList {
	if err == nil {
		return list
	}
	errMsg := exception.ExtractErrorMessage(err)
	for _, existing := range list {
		if existing == errMsg {
			return list
		}
	}
	return append(list, errMsg)
}
