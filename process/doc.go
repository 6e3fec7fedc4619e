// Package process runs ffmpeg and ffprobe. Each run gets its own process
// group so cancellation reaches every child, stdout can be capped, and the
// tail of stderr is kept for error reports.
package process
