// Package database handles database connections and schema verification.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to
// properly configure MySQL connections based on the application's
// configuration. SQLite is supported as an alternative driver, mainly for
// tests.
//
// # Schema Verification
//
// Schema migrations are owned by external tooling, so the tracker only
// verifies at startup that the tables it relies on exist. VerifyTables
// returns the names of any missing tables so the operator gets an actionable
// error instead of a mid-stream query failure.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.VerifyTables(db, models.TrackerTables())
package database
