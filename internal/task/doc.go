// Package task defines the atomic task record stored in the graph.
//
// A task is created through New, which applies structural validation and the
// atomicity policy before the task can be inserted anywhere:
//
//	t, err := task.New(task.Draft{
//	    Title:           "Add retry to upload client",
//	    SuccessCriteria: []string{"Upload retries 3 times on 5xx"},
//	    Deliverables:    []task.DeliverableDraft{{Text: "retry.go", FilePath: "internal/upload/retry.go"}},
//	}, task.DefaultPolicy())
//
// # Status Values
//
//   - "ready": Task can be started
//   - "in_progress": Task is being worked on
//   - "in_review": Work is done and awaiting review
//   - "completed": Every success criterion and deliverable is complete
//   - "blocked": Task waits on blockers (reachable from any non-terminal state)
//
// # Completion Bookkeeping
//
// CompletedAt is set as soon as every success criterion and deliverable is
// complete and is cleared when any of them becomes incomplete or a new item is
// added. Adding or un-completing an item on a completed task moves it back to
// in_progress.
//
// # Priority Values
//
//   - "high", "medium", "low"
package task
