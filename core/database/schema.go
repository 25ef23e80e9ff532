package database

import (
	"fmt"

	"gorm.io/gorm"
)

// VerifyTables checks that a table exists for every given model and returns
// the missing table names. Models may be passed as structs or pointers.
func VerifyTables(db *gorm.DB, tables []any) ([]string, error) {
	var missing []string
	migrator := db.Migrator()
	for _, model := range tables {
		if !migrator.HasTable(model) {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(model); err != nil {
				return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
			}
			missing = append(missing, stmt.Schema.Table)
		}
	}
	return missing, nil
}
