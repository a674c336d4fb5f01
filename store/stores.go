package store

import (
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
)

// Notify channels, one per entity family. The matching triggers are
// installed by the migrations in config.
const (
	VisitsChannel    = "visits_changed"
	ContractsChannel = "contracts_changed"
	CompaniesChannel = "companies_changed"
	BranchesChannel  = "branches_changed"
)

// NewPQNotifier builds a LISTEN/NOTIFY listener against the given DSN.
// Each store gets its own listener so per-store subscriptions stay
// independent.
func NewPQNotifier(dsn string) Notifier {
	return pq.NewListener(dsn, time.Second, 30*time.Second, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("⚠️  pq listener event %d: %v", ev, err)
		}
	})
}

// NewVisitStore mirrors the visits collection.
func NewVisitStore(db *gorm.DB, n Notifier) *Store[models.Visit] {
	return New[models.Visit](db, n, "visits", VisitsChannel)
}

// NewContractStore mirrors the contracts collection.
func NewContractStore(db *gorm.DB, n Notifier) *Store[models.Contract] {
	return New[models.Contract](db, n, "contracts", ContractsChannel)
}

// NewCompanyStore mirrors the companies collection.
func NewCompanyStore(db *gorm.DB, n Notifier) *Store[models.Company] {
	return New[models.Company](db, n, "companies", CompaniesChannel)
}

// NewBranchStore mirrors the branches collection.
func NewBranchStore(db *gorm.DB, n Notifier) *Store[models.Branch] {
	return New[models.Branch](db, n, "branches", BranchesChannel)
}
