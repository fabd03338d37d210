// Package progress reports download progress for a folder drain.
//
// Counters are kept with atomics so parallel fetch workers can update them
// without coordination. Rendering is delegated to schollz/progressbar.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{Hidden: !cfg.Progress})
//	defer reporter.Finish()
//
//	reporter.AddFiles(len(page.Files))
//	reporter.FileStarted()
//	reporter.ChunkWritten(n)
//	reporter.FileCompleted()
//
// # Output Format
//
//	downloading 12.5 MiB  42% |████████            | (5/12) [3s]
package progress
