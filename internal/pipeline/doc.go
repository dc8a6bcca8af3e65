// Package pipeline provides a framework for executing analysis steps in
// sequence.
//
// The pipeline pattern is used to take an access-log source through its
// stages: ingestion (parsing and classification into aggregation state),
// crawl-trap detection, and summary finalization. Each stage is
// implemented as a Step that receives the current Analysis and can
// modify it.
//
// Design decision: We use a pipeline pattern instead of direct function
// calls because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for large log files
//
// The pipeline supports both single-source runs and batch processing
// with concurrency control using errgroup. Batch results can be merged
// into one combined summary because aggregation state merges are
// associative and commutative.
package pipeline
