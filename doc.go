// Package haystack searches large byte streams for a set of byte patterns.
//
// A needle is a named byte pattern with a happiness level (0-9) and a
// context policy. Every needle is searched for at once with a single
// Aho-Corasick automaton; the haystack is read chunk by chunk, so memory use
// depends on the chunk size and not on the haystack size.
//
// # Quick Start
//
//	set, _ := needle.LoadFile("needles.yaml")
//	s, _ := haystack.New(set, haystack.WithOutputDir("./results"))
//	res, err := s.ScanFile(ctx, "disk.img")
//	fmt.Println(res.Matches, res.RunDir)
//
// # Sources
//
// Uncompressed regular files are memory mapped and scanned as a single
// chunk. Compressed files, pipes, readers and blobs are streamed through a
// fixed chunk buffer:
//
//	res, err := s.ScanReader(ctx, "stdin", os.Stdin, -1)
//
//	store, _ := s3.New(ctx, "evidence")
//	res, err := s.ScanBlob(ctx, store, "images/disk.img.zst")
//
// Gzip, zstd, lz4, s2/snappy and bzip2 input is detected from its magic
// bytes unless WithCompression forces a format.
//
// # Chunk Boundaries
//
// The last Carry bytes of each chunk are repeated at the front of the next
// one, so an occurrence spanning two chunks is seen whole. The carry must be
// at least the longest pattern length minus one. Occurrences found twice
// because of the overlap are reported once.
//
// # Output
//
// With WithOutputDir each scan writes a run directory:
//
//	results__disk.img__2024-03-01T12_30_45/
//	├── 00_all_output_record.jsonl   one JSON record per match
//	├── 01_general_log.log           written by the CLI
//	├── 02_needle_config.yaml        see WithNeedleConfig
//	├── 03_scan_manifest.json        parameters, totals and status
//	└── 5_hello/
//	    ├── 001_hello.jsonl          records of this needle
//	    └── found_g_0x..._startat_0x....bin
//
// Run directories can be uploaded with Scanner.Export.
//
// # Errors
//
// Errors returned by a scan carry a Kind. Startup errors occur before any
// haystack byte is read. Runtime errors abort the scan; records written so
// far stay valid. Recoverable errors, such as a failed context file, are
// logged and counted in the result:
//
//	var he *haystack.Error
//	if errors.As(err, &he) && he.Kind == haystack.KindStartup {
//	    // bad configuration
//	}
package haystack
