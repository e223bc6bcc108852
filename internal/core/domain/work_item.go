package domain

import "fmt"

// WorkItem identifies one snapshot object awaiting a load job.
// Immutable once enumerated; each run consumes it in exactly one submission.
type WorkItem struct {
	Bucket string
	Key    string
}

// URI returns the object reference passed to the load API.
func (w WorkItem) URI() string {
	return fmt.Sprintf("gs://%s/%s", w.Bucket, w.Key)
}

// Batch is an ordered, non-empty grouping of work items. It only exists for
// the duration of one planning pass.
type Batch struct {
	Items []WorkItem
}

func (b Batch) Size() int {
	return len(b.Items)
}
