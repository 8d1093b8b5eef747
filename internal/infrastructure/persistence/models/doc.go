// Package models holds the GORM table models of the catalog. Repositories convert
// between them and the domain aggregates so the domain packages never see a database session.
package models
