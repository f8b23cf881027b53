// Package preflight provides readiness checks for the directories and the
// upload endpoint that Snapship depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs every failure before
//     watching begins, so a dead endpoint or unwritable archive surfaces
//     immediately instead of on the first upload.
//   - The CLI "snapship status" command uses the same results to display
//     service health.
//
// Failed checks do not stop the daemon; files queue up in the watch directory
// either way, and the endpoint may recover.
package preflight
