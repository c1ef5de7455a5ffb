// Package db embeds the database schema applied on startup.
package db

import _ "embed"

// Schema contains the DDL for every table the storefront owns. Orders
// themselves live in the upstream order service and have no table here.
//
//go:embed migrations/001_schema.sql
var Schema string
