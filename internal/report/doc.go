// Package report turns a recorded flow into an analysis report.
//
// [Generator.Run] makes every model call through an inference client, so a
// re-run over the same flow with the same settings is served from the cache.
// The pipeline has five stages:
//
//  1. list the user interactions, either from the (redacted) raw steps or,
//     with video analysis on, from enriched steps whose VIDEO segments are
//     described by the vision model;
//  2. summarize the flow;
//  3. ask for N image prompt variations as JSON;
//  4. generate one image per variation and save it under the image directory;
//  5. have the vision model pick the best image, unless there is only one.
//
// Model output that should be JSON is read with [ExtractJSON], which
// tolerates markdown fences and surrounding prose.
package report
