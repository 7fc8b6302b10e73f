package storage

import "gorm.io/gorm"

// Repository is best-effort persistence: callers log failures and keep
// going, the pipeline never blocks on the audit trail.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transactions

func (r *Repository) SaveTransaction(tx *Transaction) error {
	return r.db.Create(tx).Error
}

func (r *Repository) UpdateTransaction(tx *Transaction) error {
	return r.db.Save(tx).Error
}

func (r *Repository) GetTransactionsByUser(userID string, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&txs).Error
	return txs, err
}

// Exchange logs

func (r *Repository) SaveExchangeLog(log *ExchangeLog) error {
	return r.db.Create(log).Error
}

func (r *Repository) GetRecentExchanges(userID string, limit int) ([]ExchangeLog, error) {
	var logs []ExchangeLog
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
