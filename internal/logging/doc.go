// Package logging builds the slog loggers tzbuild components share.
//
// A console handler renders a headline plus indented detail lines for
// humans, a JSON handler emits one object per line for collectors, and
// NewFromConfig tees terminal output into a per-run log file. Helpers cover
// component tagging, attribute construction, and pruning of aged run logs.
package logging
