// Package datstats computes per-column summary statistics over tab-delimited
// stats files.
//
// A stats file holds one record per line with numeric fields separated by
// tabs. The first record fixes the column count N; later records must carry
// at least N fields and anything past N is ignored. For each column datstats
// reports the mean, the median (the upper middle element for an even count),
// the minimum and the maximum.
//
// # Command Line
//
//	datstats STATSFILE.dat
//	datstats --format json --metrics-file run.prom latency.dat.zst
//
// Output for each column i:
//
//	Col i mean: 3.0
//	Col i median: 3.0
//	Col i min/max: 1.0 / 5.0
//
// # Key Packages
//
//	pkg/colstats      - Column accumulation and summaries
//	pkg/datfile       - Stats file reader and writer registry
//	pkg/report        - Text, JSON and YAML reports
//	pkg/compression   - gzip, zstd, lz4, snappy and s2 streams
//	pkg/config        - Flags, environment and config file via viper
//	pkg/logger        - Structured logging with zap
//	pkg/metrics       - Prometheus metrics of a run
//	pkg/observability - OpenTelemetry tracing
//	internal/pipeline - Read, summarize and report orchestration
package datstats
