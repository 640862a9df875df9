// Package models holds the GORM persistence models of the billing engine.
// Models convert to and from domain types; JSON columns carry the parts of
// a document whose shape is owned by the domain package.
package models
