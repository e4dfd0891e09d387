package memory

import "context"

// TxManager is a pass-through: the map-backed repos synchronize themselves
// and there is nothing transactional to roll back.
type TxManager struct{}

func NewTxManager() TxManager {
	return TxManager{}
}

func (TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
