package dirsnap

// StagingArea materializes a restore beside its target so the target is only
// touched by a final swap.
type StagingArea interface {
	// Prepare creates an empty staging directory for target and returns its path.
	Prepare(target string) (string, error)

	// Commit replaces target with the staged directory. If the swap fails the
	// original target is put back. A failure to remove the previous contents after
	// a successful swap is reported as a CodeCleanup error.
	Commit(staged string, target string) error

	// Discard removes a staging directory that will not be committed.
	Discard(staged string) error
}
