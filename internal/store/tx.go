package store

import "context"

// WithTx runs fn inside a unit of work, committing on success and rolling back otherwise.
func WithTx(ctx context.Context, s Store, fn func(uow UnitOfWork) error) error {
	uow, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}
