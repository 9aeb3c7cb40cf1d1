package dirsnap

// FilesystemManager walks a source tree and produces the archive candidate set.
type FilesystemManager interface {
	// Scan walks root, pruning directories and skipping files whose relative path
	// matches the ignore rules. rawSource is the source argument as the user typed it;
	// ignore patterns are matched against rawSource + "/" + relative path.
	// progress may be nil.
	Scan(root string, rawSource string, progress ScanProgressFunc) (*ScanResult, error)
}
