package store

import "fmt"

// PersistError reports that a mutation was applied in memory but its
// snapshot could not be saved.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist after %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
