package adapter

// Workspace is a job's exclusively-owned temp directory. Release removes
// everything under it and is safe to call more than once.
type Workspace interface {
	Path() string
	Release() error
}

// WorkspaceManager hands out per-job working directories. Acquire fails with
// domain.ErrDiskPressure when the configured free-space floor would be
// violated.
type WorkspaceManager interface {
	Acquire(jobID string) (Workspace, error)
}
