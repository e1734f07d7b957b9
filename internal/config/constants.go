package config

// Default paths and names
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./vcfgen.db"

	// DefaultOutputDir is where generated .vcf files are stored by the web UI
	DefaultOutputDir = "./output"

	// DefaultFileName is the download name offered for generated files
	DefaultFileName = "phones.vcf"

	// DefaultMaxInvalidShown caps how many invalid lines a summary lists
	DefaultMaxInvalidShown = 200
)
