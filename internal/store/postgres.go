package store

import (
	"context"
	"errors"

	wrap "github.com/yanun0323/errors"
	"gorm.io/gorm"

	"main/pkg/conn"
	"main/pkg/exception"
)

// Postgres reads deposit processes from the relational store.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an established connection.
func NewPostgres(client *conn.Client) (*Postgres, error) {
	if client == nil || client.DB() == nil {
		return nil, exception.ErrNilStoreClient
	}
	return &Postgres{db: client.DB()}, nil
}

// DepositProcess returns the deposit process by id.
func (p *Postgres) DepositProcess(ctx context.Context, id uint64) (DepositProcess, error) {
	if p == nil || p.db == nil {
		return DepositProcess{}, exception.ErrNilStoreClient
	}
	var row DepositProcess
	err := p.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DepositProcess{}, exception.ErrDepositNotFound
		}
		return DepositProcess{}, wrap.Wrap(err, "query deposit process")
	}
	return row, nil
}
