// Package domain contains the core business concepts for docpress.
// Keep this package free of transport (HTTP) and infrastructure
// (Redis/Chrome/Postgres) concerns.
package domain
