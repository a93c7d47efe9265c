// Package output writes a scan's results into a run directory.
//
// A run directory holds a scan-wide record log, the general log, a copy of
// the needle configuration and the scan manifest, plus one directory per
// needle:
//
//	results__disk.img__2024-03-01T12_30_45/
//	    00_all_output_record.jsonl
//	    01_general_log.log
//	    02_needle_config.yaml
//	    03_scan_manifest.json
//	    5_hello/
//	        001_hello.jsonl
//	        found_g_0x0000_0000_0000_0000_1388_startat_0xF88.bin
//
// File names depend only on the needle and the match offsets, so a re-run
// over the same input overwrites instead of duplicating.
package output
