package store

import _ "embed"

// Schema holds the DDL for the enrollment tables. Deployments apply it with
// their migration tooling; integration tests apply it verbatim.
//
//go:embed schema.sql
var Schema string
