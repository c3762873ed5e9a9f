// Package gen generates DDL scripts and Go model definitions from rowset
// models.
//
// The generation pipeline follows this flow:
//
//	Model definitions (models.yaml)
//	        ↓
//	   compiler/load (schema.Model hierarchies)
//	        ↓
//	   Generator.Files (DDL scripts, jennifer files)
//	        ↓
//	   Writer (parallel render, goimports, write)
//
// # Generated files
//
//   - schema_<dialect>.sql: CREATE TABLE and CREATE INDEX statements of
//     every model, referenced tables first.
//   - <model>.go: table and column name constants, enumeration values and
//     a New<Model> constructor rebuilding the root model and its children.
//   - models.go: a Models function building every root model and
//     attaching the foreign keys between them.
//
// # Configuration
//
// A rowsetc.yaml file configures a run:
//
//	models: models.yaml
//	target: ./store
//	package: store
//	dialects: [postgres, sqlite]
//	acronyms: [SKU]
//
// Check constraints and relationship keys mapped from constants have no
// source form and are rejected by the Go generator; the DDL scripts carry
// them.
package gen
