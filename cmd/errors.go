package cmd

import "fmt"

// TargetsFileError indicates the targets file could not be read.
type TargetsFileError struct {
	Path string
	Err  error
}

func (e *TargetsFileError) Error() string {
	return fmt.Sprintf("targets file %s: %v", e.Path, e.Err)
}

func (e *TargetsFileError) Unwrap() error {
	return e.Err
}

// BatchError reports targets that could not be checked at all.
type BatchError struct {
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	if e.Failed == e.Total {
		return fmt.Sprintf("all %d targets failed validation", e.Total)
	}
	return fmt.Sprintf("%d of %d targets failed validation", e.Failed, e.Total)
}
