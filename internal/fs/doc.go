// Package fs is the seam between mmseq and the file system.
//
// Data files are opened through a [FileSystem] and mapped via [File.Fd];
// sidecar indexes are written with [WriteAtomic]. Tests swap in [FaultyFS]
// to make individual operations fail:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".idx", fs.Fault{FailOnRename: true, FailAfterBytes: -1})
//	v, err := mmseq.OpenIndexed(path, mmseq.WithFileSystem(ffs), mmseq.WithIndexSidecar(path+".idx"))
//
// Calls take no context.Context; local file operations cannot be interrupted
// once issued.
package fs
