package loadtest

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Athlemetry Load Tool
====================

Registers synthetic athletes, uploads sprint videos with frame markers,
drains the processing queue and verifies that cohort percentiles and ranks
follow sprint times.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -athletes int
        Number of athletes to register (default 40)
  -per-athlete int
        Sprint videos uploaded per athlete (default 3)
  -workers int
        Number of concurrent uploaders (default 2 x NumCPU)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Report file (default: loadtest_report_TIMESTAMP.json)
  -verbose
        Log every failed request
  -help
        Show this help
`)
}
