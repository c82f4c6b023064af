// Package stats refreshes the spreadsheet inventory gauges (sheets, live
// rows, tombstones, users, roles) on a cron schedule.
package stats
