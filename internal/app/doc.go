// Package app composes the domain services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Accounts, roles, permissions
//	│   ├── budget/         # Subventions, budget lines, expenses
//	│   ├── projet/         # Projects and their planned charges
//	│   ├── activite/       # Workshops, sessions, attendance
//	│   └── ...             # Participants, inventaire, pedagogie, reporting
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # One interface per domain
//	│   ├── memory/         # In-memory implementation for tests
//	│   └── sqlstore/       # Postgres / SQLite implementation
//	├── services/           # Business logic, one package per domain
//	├── httpapi/            # HTTP routing, handlers, audit trail
//	├── system/             # Lifecycle manager for background services
//	└── metrics/            # Prometheus collectors
//
// # Responsibilities
//
// The app package wires stores into services and manages their lifecycle;
// business rules live in the service packages, persistence behind the
// storage interfaces, and HTTP concerns in httpapi. cmd/server composes
// the three with the platform drivers (database, cache, migrations).
//
// # Adding a New Domain
//
//  1. Create the models in internal/app/domain/<name>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory/ and storage/sqlstore/
//  4. Create the service in internal/app/services/<name>/
//  5. Wire it in application.go
//  6. Register its routes in internal/app/httpapi/handler.go
package app
