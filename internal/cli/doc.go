// Package cli parses the seqci command line into an app.Config, prints usage,
// and owns process-level exit codes. Flag validation failures surface as
// *ExitError so main can map them onto distinct exit statuses.
package cli
