package migration

import (
	"context"

	port "github.com/tigerroll/cropwx/pkg/batch/core/application/port"
	model "github.com/tigerroll/cropwx/pkg/batch/core/domain/model"
)

// MigrationTasklet ensures the schema of one database connection as a job step.
type MigrationTasklet struct {
	ensurer SchemaEnsurer
	dbRef   string
	ec      model.ExecutionContext
}

// NewMigrationTasklet creates a new MigrationTasklet instance.
func NewMigrationTasklet(ensurer SchemaEnsurer, dbRef string) *MigrationTasklet {
	return &MigrationTasklet{ensurer: ensurer, dbRef: dbRef, ec: model.NewExecutionContext()}
}

func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := t.ensurer.EnsureSchema(ctx, t.dbRef); err != nil {
		return model.ExitStatusFailed, err
	}
	return model.ExitStatusCompleted, nil
}

func (t *MigrationTasklet) Close(ctx context.Context) error { return nil }

func (t *MigrationTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *MigrationTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

var _ port.Tasklet = (*MigrationTasklet)(nil)
