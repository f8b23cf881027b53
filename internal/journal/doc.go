// Package journal persists upload outcomes in SQLite for history and status
// reporting.
//
// The Store manages database connections, schema migrations, and append-only
// records describing each finished upload attempt. Rows capture where a file
// came from, where it was archived, and why it failed when it did, so the CLI
// can answer "what happened overnight" without scraping logs.
//
// The journal is observational: the pipeline never reads it back to decide
// what to upload next, so clearing it is always safe.
package journal
