package cmart

// Application-wide defaults referenced by the config package.
const (
	DefaultAppName      = "convomart"
	DefaultConfigPath   = "/etc/convomart"
	DefaultDatabaseDir  = "./data"
	DefaultDatabasePath = "./data/convomart.db"
)
