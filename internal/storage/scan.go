package storage

import "context"

// ScanVerdict is the outcome of a virus scan.
type ScanVerdict string

const (
	ScanClean    ScanVerdict = "clean"
	ScanInfected ScanVerdict = "infected"
)

// ScanResult is what the scanning service reports for one file.
type ScanResult struct {
	Verdict   ScanVerdict
	Signature string
}

// Scanner is the file-scanning collaborator. The real implementation lives
// outside this service; deployments without one use PassthroughScanner.
type Scanner interface {
	ScanFile(ctx context.Context, data []byte, name string) (ScanResult, error)
}

// PassthroughScanner accepts everything. Used when no scanning service is
// configured.
type PassthroughScanner struct{}

func (PassthroughScanner) ScanFile(ctx context.Context, data []byte, name string) (ScanResult, error) {
	return ScanResult{Verdict: ScanClean}, nil
}
