// Package core provides the business logic for coordinate-data import operations.
//
// This package is the heart of the coordinate importer, containing all domain
// logic independent of any UI or transport layer. It can be used by web
// handlers, CLI tools, or tests without modification.
//
// # Architecture
//
// Raw text flows through a fixed pipeline:
//
//	text -> Tokenize -> raw rows -> Mapping -> Build -> records -> Merge -> Store -> Serialize
//
//   - Schemas: three fixed record families registered in the registry
//     (common points, points, results), each an ordered list of slots.
//   - Mapping: per-import assignment of raw columns to slots, proposed by
//     [AutoMatch] or inverted from UI choices by [Resolve].
//   - Store: an ordered, session-scoped record collection with an
//     upsert-by-name [Store.Merge].
//   - Service: owns per-session workspaces and runs imports, exports and the
//     remote transform round trip.
//
// # Records
//
// Records are typed structs rather than key/value bags:
//
//	p := core.Point{Name: "P01"}
//	p.Set(core.CoordX, "4380123.456")
//
// Common point and point coordinates stay text, since they may hold angle
// notation decoded later by the caller. Result coordinates are parsed into
// nullable floats.
//
// # Merge Semantics
//
// Incoming records are matched to stored ones by name after trimming
// surrounding whitespace. Matching is exact and case-sensitive. A match is
// updated in place with the incoming non-empty values; everything else is
// appended in batch order. Blank names never match.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - IMP001-IMP005: Import errors (empty input, no valid rows, mapping)
//   - FILE001-FILE004: File errors (unreadable, size)
//   - UPL002-UPL005: Capacity and cancellation
//   - WS001, SCH001, RMT001-RMT002: Sessions, schemas, remote transform
package core
