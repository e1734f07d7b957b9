// Package database provides the data access layer for the application.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── generations/     # Generation runs, progress and invalid lines
//	└── audit/           # Audit trail of generations and cleanups
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./vcfgen.db")
//
//	generationsRepo := generations.NewRepository(db.DB)
//	gen, err := generationsRepo.GetByPublicID(id)
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add compile-time interface checks where the repository satisfies
//     an interface declared by its consumer
package database
