package build

import "fmt"

// AssemblyError reports a relation whose member ways could not be resolved
// into valid polygon rings. Typical cause: the source extract was cut
// without enough padding, leaving ring fragments without their closing
// counterparts. The affected feature is skipped; the run continues.
type AssemblyError struct {
	RelationID int64
	Reason     string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("relation %d: geometry assembly failed: %s", e.RelationID, e.Reason)
}
