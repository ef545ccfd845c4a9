// Flowscribe turns a recorded product flow into an analysis report.
//
// It lists the user's interactions, summarizes the flow, generates candidate
// social media images and has a vision model pick the best one. Every model
// response is memoized in a content-addressed on-disk cache, so re-running
// over the same flow costs nothing.
//
// Usage:
//
//	flowscribe generate flow.json          # write REPORT.md and images
//	flowscribe generate --videos flow.json # describe VIDEO steps too
//	flowscribe cache stats                 # show cached entry counts
//	flowscribe cache clear --partition images
//	flowscribe config init                 # write a default config file
package main
