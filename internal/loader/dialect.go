package loader

import (
	"fmt"
	"strings"
)

// dialect renders the staging and merge statements of one database type.
type dialect interface {
	// createStaging returns the statements that create an empty staging table shaped like table.
	createStaging(stage, table string, cols []string) []string
	// merge copies the staged rows into table, skipping rows whose key already exists.
	merge(table, stage string, cols, key []string) string
	// dropStaging returns the statement removing the staging table, or "" when it drops itself.
	dropStaging(stage string) string
}

func dialectFor(dbType string) (dialect, error) {
	switch dbType {
	case "postgres":
		return postgresDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database type %q", dbType)
}

type postgresDialect struct{}

func (postgresDialect) createStaging(stage, table string, _ []string) []string {
	return []string{fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", stage, table)}
}

func (postgresDialect) merge(table, stage string, cols, key []string) string {
	return onConflictMerge(table, stage, cols, key)
}

func (postgresDialect) dropStaging(string) string { return "" }

type sqliteDialect struct{}

func (sqliteDialect) createStaging(stage, table string, cols []string) []string {
	// Temp tables outlive the transaction on SQLite; a failed run may have left one behind.
	return []string{
		fmt.Sprintf("DROP TABLE IF EXISTS temp.%s", stage),
		fmt.Sprintf("CREATE TEMP TABLE %s AS SELECT %s FROM %s WHERE 0", stage, strings.Join(cols, ", "), table),
	}
}

func (sqliteDialect) merge(table, stage string, cols, key []string) string {
	return onConflictMerge(table, stage, cols, key)
}

func (sqliteDialect) dropStaging(stage string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS temp.%s", stage)
}

type mysqlDialect struct{}

func (mysqlDialect) createStaging(stage, table string, _ []string) []string {
	return []string{
		fmt.Sprintf("DROP TEMPORARY TABLE IF EXISTS %s", stage),
		fmt.Sprintf("CREATE TEMPORARY TABLE %s LIKE %s", stage, table),
	}
}

func (mysqlDialect) merge(table, stage string, cols, _ []string) string {
	c := strings.Join(cols, ", ")
	return fmt.Sprintf("INSERT IGNORE INTO %s (%s) SELECT %s FROM %s", table, c, c, stage)
}

func (mysqlDialect) dropStaging(stage string) string {
	return fmt.Sprintf("DROP TEMPORARY TABLE IF EXISTS %s", stage)
}

// onConflictMerge is shared by PostgreSQL and SQLite. SQLite needs the WHERE clause
// to tell the upsert ON apart from a join constraint.
func onConflictMerge(table, stage string, cols, key []string) string {
	c := strings.Join(cols, ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s WHERE true ON CONFLICT (%s) DO NOTHING",
		table, c, c, stage, strings.Join(key, ", "))
}

// insertValues renders a multi-row parameterized INSERT for n rows.
func insertValues(table string, cols []string, n int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

func stagingName(tableName string) string {
	return "stg_" + tableName
}
