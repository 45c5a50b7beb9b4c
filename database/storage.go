package database

// Storage is the database handle passed to the function-style admin
// handlers and the health check. GORMStore is the only implementation.
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GetDB returns the *gorm.DB; callers type-assert it
	GetDB() interface{}
}
