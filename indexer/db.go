package indexer

import (
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// ErrAlertNotFound is returned when no alert was indexed for a transaction.
var ErrAlertNotFound = errors.New("alert not found")

// FraudAlert is an indexed FraudDetected event.
type FraudAlert struct {
	gorm.Model

	TransactionID string `gorm:"size:32;unique_index" json:"transaction_id"`
	FraudScore    uint8  `gorm:"index" json:"fraud_score"`
	Slot          uint64 `json:"slot"`
	Signature     string `gorm:"size:128" json:"signature"`
	ProgramID     string `gorm:"size:44" json:"program_id"`
	RecordAddress string `gorm:"size:44" json:"record_address"`
}

// Database stores indexed alerts.
type Database struct {
	database *gorm.DB
}

// NewDatabase migrates the schema and wraps db.
func NewDatabase(db *gorm.DB) (*Database, error) {
	if err := db.AutoMigrate(&FraudAlert{}).Error; err != nil {
		return nil, errors.Wrap(err, "error migrating alert schema")
	}
	return &Database{db}, nil
}

// Save stores the alert unless one is already stored for the same transaction. It reports whether the alert was new.
func (db *Database) Save(alert *FraudAlert) (bool, error) {
	var existing FraudAlert
	err := db.database.Where("transaction_id = ?", alert.TransactionID).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return false, errors.Wrapf(err, "error looking up alert for %s", alert.TransactionID)
	}

	if err := db.database.Create(alert).Error; err != nil {
		return false, errors.Wrapf(err, "error saving alert for %s", alert.TransactionID)
	}
	return true, nil
}

// Latest returns the n most recently indexed alerts.
func (db *Database) Latest(n int) ([]FraudAlert, error) {
	var alerts []FraudAlert
	err := db.database.Limit(n).Order("slot desc, id desc").Find(&alerts).Error
	return alerts, err
}

// ByTransactionID returns the alert for a transaction.
func (db *Database) ByTransactionID(id string) (*FraudAlert, error) {
	var alert FraudAlert
	err := db.database.Where("transaction_id = ?", id).First(&alert).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, errors.Wrapf(ErrAlertNotFound, "transaction %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// AboveScore returns every alert scored at least min, highest first.
func (db *Database) AboveScore(min uint8) ([]FraudAlert, error) {
	var alerts []FraudAlert
	err := db.database.Where("fraud_score >= ?", min).Order("fraud_score desc, slot desc").Find(&alerts).Error
	return alerts, err
}

// Count returns how many alerts are indexed.
func (db *Database) Count() (int, error) {
	var n int
	err := db.database.Model(&FraudAlert{}).Count(&n).Error
	return n, err
}
