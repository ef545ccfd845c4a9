// Package output formats flow reports for reading or machine consumption.
//
// Two formats are supported:
//   - markdown: the human-readable report with flow information, user
//     interactions, summary, the selected image and, when several images
//     were generated, an image-selection addendum with a score table
//   - json: the full structured report
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*report.Report]. [WriteReport]
// handles destination selection.
package output
