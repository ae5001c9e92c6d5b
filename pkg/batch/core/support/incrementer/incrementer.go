// Package incrementer derives the parameters of each job launch.
package incrementer

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/cropwx/pkg/batch/support/util/logger"
)

// DefaultTimestampKey is the parameter set by the default incrementer.
const DefaultTimestampKey = "run.timestamp"

// TimestampIncrementer stamps job parameters with the launch time in RFC 3339 (UTC).
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

// NewTimestampIncrementer creates a new instance of TimestampIncrementer.
func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = DefaultTimestampKey
	}
	return &TimestampIncrementer{name: name, now: time.Now}
}

// GetNext returns a copy of params with the timestamp parameter set. params is not modified.
func (i *TimestampIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	next := model.NewJobParameters()
	for k, v := range params {
		next.Put(k, v)
	}
	stamp := i.now().UTC().Format(time.RFC3339)
	next.Put(i.name, stamp)
	logger.Debugf("JobParametersIncrementer: setting '%s' to %s.", i.name, stamp)
	return next
}

func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

var _ port.JobParametersIncrementer = (*TimestampIncrementer)(nil)

// Module provides the TimestampIncrementer to the job runner.
var Module = fx.Provide(fx.Annotate(
	func() *TimestampIncrementer { return NewTimestampIncrementer(DefaultTimestampKey) },
	fx.As(new(port.JobParametersIncrementer)),
))
