// Package fs abstracts the filesystem calls made by the output sink so tests
// can inject write failures.
//
//   - [LocalFS] delegates to the os package and is the production default.
//   - [FaultyFS] wraps another FileSystem and fails opens, writes, syncs or
//     closes for files whose path contains a configured pattern.
//
// Typical test use:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".bin", fs.Fault{FailOnOpen: true})
//	// hand ffs to the component under test
//
// Calls carry no context.Context: local file operations cannot be
// interrupted at the syscall level. Remote storage goes through blobstore.
package fs
