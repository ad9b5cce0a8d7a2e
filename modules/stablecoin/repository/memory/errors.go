package memory

import "github.com/cockroachdb/errors"

var ErrTxAlreadyExists = errors.New("Transaction already exists. Call Commit() or Rollback() first.")
